// Package contentdir owns the filesystem directory holding actual image
// bytes, one file per record. It resolves a source URI into bytes on disk
// using one of three ingestion strategies: inline base64 decode, local file
// copy, or streaming download.
package contentdir

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvirtane/imagevault/internal/errors"
	"github.com/mvirtane/imagevault/internal/httpclient"
	"github.com/mvirtane/imagevault/internal/logging"
)

// SourceKind classifies an ingestion source URI.
type SourceKind int

const (
	SourceLocal  SourceKind = iota // a path already inside the local sandbox
	SourceRemote                   // http(s) URL, stream-downloaded
	SourceInline                   // data URI, decoded in place
)

// KindOf classifies the given source URI.
func KindOf(source string) SourceKind {
	switch {
	case strings.HasPrefix(source, "data:"):
		return SourceInline
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return SourceRemote
	default:
		return SourceLocal
	}
}

// IsLocal reports whether the source needs no ingestion to be displayable.
func IsLocal(source string) bool {
	return KindOf(source) == SourceLocal
}

// Directory maps record identities to byte-level files under a root path.
type Directory struct {
	root   string
	client *httpclient.Client
	logger *slog.Logger
	now    func() time.Time
}

// New creates a content directory rooted at root, creating it if needed.
func New(root string, client *httpclient.Client) (*Directory, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.New(fmt.Errorf("creating content directory %s: %w", root, err)).
			Category(errors.CategoryFileIO).
			Build()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New(fmt.Errorf("resolving content directory %s: %w", root, err)).
			Category(errors.CategoryFileIO).
			Build()
	}
	return &Directory{
		root:   abs,
		client: client,
		logger: logging.ForService("contentdir"),
		now:    time.Now,
	}, nil
}

// SetClock overrides the time source, used by tests.
func (d *Directory) SetClock(now func() time.Time) {
	d.now = now
}

// Root returns the absolute root path of the directory.
func (d *Directory) Root() string {
	return d.root
}

// Ingest resolves source into a file under the directory root and returns
// the destination path and its on-disk size. The destination name is derived
// from the record id plus an ingestion timestamp so rapid repeated writes
// with the same id never collide. No partial file is left behind on failure.
func (d *Directory) Ingest(ctx context.Context, id, source string) (string, int64, error) {
	dest := filepath.Join(d.root, fmt.Sprintf("%s_%d%s", id, d.now().UnixMilli(), extensionFor(source)))

	var err error
	switch KindOf(source) {
	case SourceInline:
		err = d.writeInline(dest, source)
	case SourceRemote:
		err = d.download(ctx, dest, source)
	case SourceLocal:
		err = d.copyLocal(dest, source)
	}
	if err != nil {
		// Failed strategies must not leave a partial destination file.
		_ = os.Remove(dest)
		return "", 0, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		_ = os.Remove(dest)
		return "", 0, errors.New(fmt.Errorf("stating ingested file: %w", err)).
			Category(errors.CategoryIngestion).
			Build()
	}

	return dest, info.Size(), nil
}

// writeInline decodes a base64 data URI and writes the bytes to dest.
func (d *Directory) writeInline(dest, source string) error {
	data, err := DecodeDataURI(source)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return errors.New(fmt.Errorf("writing decoded bytes: %w", err)).
			Category(errors.CategoryIngestion).
			FileContext(dest, int64(len(data))).
			Build()
	}
	return nil
}

// copyLocal copies bytes from an existing local file to dest. The original
// is never moved, it may be referenced elsewhere.
func (d *Directory) copyLocal(dest, source string) error {
	source = strings.TrimPrefix(source, "file://")

	in, err := os.Open(source)
	if err != nil {
		return errors.New(fmt.Errorf("opening source file: %w", err)).
			Category(errors.CategoryIngestion).
			FileContext(source, 0).
			Build()
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(dest)
	if err != nil {
		return errors.New(fmt.Errorf("creating destination file: %w", err)).
			Category(errors.CategoryIngestion).
			FileContext(dest, 0).
			Build()
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.New(fmt.Errorf("copying file contents: %w", err)).
			Category(errors.CategoryIngestion).
			FileContext(dest, 0).
			Build()
	}
	if err := out.Close(); err != nil {
		return errors.New(fmt.Errorf("closing destination file: %w", err)).
			Category(errors.CategoryIngestion).
			FileContext(dest, 0).
			Build()
	}
	return nil
}

// download streams the remote URL to dest.
func (d *Directory) download(ctx context.Context, dest, url string) error {
	resp, err := d.client.Get(ctx, url)
	if err != nil {
		return errors.New(fmt.Errorf("downloading image: %w", err)).
			Category(errors.CategoryNetwork).
			NetworkContext(url, 0).
			Build()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			d.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("downloading image: unexpected status %d", resp.StatusCode).
			Category(errors.CategoryNetwork).
			NetworkContext(url, 0).
			Build()
	}

	out, err := os.Create(dest)
	if err != nil {
		return errors.New(fmt.Errorf("creating destination file: %w", err)).
			Category(errors.CategoryIngestion).
			FileContext(dest, 0).
			Build()
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return errors.New(fmt.Errorf("streaming download to file: %w", err)).
			Category(errors.CategoryNetwork).
			NetworkContext(url, 0).
			Build()
	}
	if err := out.Close(); err != nil {
		return errors.New(fmt.Errorf("closing destination file: %w", err)).
			Category(errors.CategoryIngestion).
			FileContext(dest, 0).
			Build()
	}
	return nil
}

// Delete removes the file at path. Deleting a path that does not exist is
// not an error. Paths outside the directory root are refused.
func (d *Directory) Delete(path string) error {
	if !d.contains(path) {
		return errors.Newf("refusing to delete path outside content directory: %s", filepath.Base(path)).
			Category(errors.CategoryValidation).
			Build()
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New(fmt.Errorf("deleting file: %w", err)).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	return nil
}

// Exists reports whether the file at path exists.
func (d *Directory) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// FileSize returns the on-disk size of the file at path, or 0 if it is missing.
func (d *Directory) FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// RemoveAll deletes the entire directory tree and recreates an empty root.
// Used as the final sweep of a full reset to catch unindexed orphan files.
func (d *Directory) RemoveAll() error {
	if err := os.RemoveAll(d.root); err != nil {
		return errors.New(fmt.Errorf("removing content directory: %w", err)).
			Category(errors.CategoryFileIO).
			Build()
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return errors.New(fmt.Errorf("recreating content directory: %w", err)).
			Category(errors.CategoryFileIO).
			Build()
	}
	return nil
}

// contains reports whether path is inside the directory root.
func (d *Directory) contains(path string) bool {
	rel, err := filepath.Rel(d.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
