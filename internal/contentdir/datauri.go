package contentdir

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/mvirtane/imagevault/internal/errors"
)

// mimeExtensions maps the image MIME types the product produces to file
// extensions. Unknown types fall back to extBinary.
var mimeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/heic": ".heic",
	"image/bmp":  ".bmp",
}

const extBinary = ".bin"

// DecodeDataURI decodes a base64 data URI of the form
// data:<mediatype>;base64,<payload> and returns the raw bytes.
func DecodeDataURI(source string) ([]byte, error) {
	rest, ok := strings.CutPrefix(source, "data:")
	if !ok {
		return nil, errors.Newf("not a data URI").
			Category(errors.CategoryIngestion).
			Build()
	}

	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, errors.Newf("malformed data URI: missing payload separator").
			Category(errors.CategoryIngestion).
			Build()
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.Newf("unsupported data URI encoding, only base64 is supported").
			Category(errors.CategoryIngestion).
			Build()
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.New(fmt.Errorf("decoding base64 payload: %w", err)).
			Category(errors.CategoryIngestion).
			Build()
	}
	return data, nil
}

// dataURIMIME extracts the media type of a data URI, or "" if absent.
func dataURIMIME(source string) string {
	rest, ok := strings.CutPrefix(source, "data:")
	if !ok {
		return ""
	}
	meta, _, found := strings.Cut(rest, ",")
	if !found {
		return ""
	}
	return strings.TrimSuffix(meta, ";base64")
}

// extensionFor picks a file extension for the ingested copy of source.
func extensionFor(source string) string {
	switch KindOf(source) {
	case SourceInline:
		if ext, ok := mimeExtensions[strings.ToLower(dataURIMIME(source))]; ok {
			return ext
		}
		return extBinary
	case SourceRemote:
		if u, err := url.Parse(source); err == nil {
			if ext := path.Ext(u.Path); ext != "" {
				return strings.ToLower(ext)
			}
		}
		return extBinary
	default:
		if ext := path.Ext(strings.TrimPrefix(source, "file://")); ext != "" {
			return strings.ToLower(ext)
		}
		return extBinary
	}
}
