// config.go: settings struct and functions to load and save the application settings.
package conf

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig contains settings for log file output.
type LogConfig struct {
	Enabled    bool   // true to enable file logging
	Path       string // path to log file
	MaxSize    int64  // maximum log file size in bytes before rotation
	MaxBackups int    // number of rotated log files to keep
	MaxAge     int    // days to retain rotated log files
}

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    // name of this node, used in logs
	Log  LogConfig // log settings
}

// StoreSettings contains settings for the persistent image store.
type StoreSettings struct {
	Debug             bool   // true to enable store debug logging
	ContentDir        string // directory for store-owned content files
	MaxTrainingImages int    // maximum entries in the training set
}

// CacheSettings contains settings for the remote image cache.
type CacheSettings struct {
	Debug        bool    // true to enable cache debug logging
	Dir          string  // directory for cache-owned content files
	MaxSize      int64   // maximum total cache size in bytes
	CleanupRatio float64 // cleanup target as a fraction of MaxSize
	MaxAge       string  // entry expiry, e.g. "7d" or "168h"
}

// StorageSettings groups the on-disk layout of the subsystem.
type StorageSettings struct {
	BaseDir    string // base directory for all locally held assets
	LedgerPath string // path to the metadata ledger database file
}

// DownloadSettings contains settings for remote fetches.
type DownloadSettings struct {
	Timeout   string // per-download timeout, e.g. "30s"
	UserAgent string // User-Agent header for downloads
}

// Settings contains all application settings
type Settings struct {
	Debug bool // true to enable debug mode

	Main     MainSettings
	Storage  StorageSettings
	Store    StoreSettings
	Cache    CacheSettings
	Download DownloadSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into the global settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	initViper()

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := absolutizePaths(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets up viper with defaults and optional config file discovery.
func initViper() {
	viper.SetConfigName("imagevault")
	viper.SetConfigType("yaml")

	configPaths := configPaths()
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errorsAs(err, &configFileNotFoundError) {
			log.Printf("error reading config file: %v", err)
		}
		// No config file is fine, defaults apply.
	}
}

// configPaths returns the list of directories searched for a config file.
func configPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "imagevault"))
	}
	return paths
}

// absolutizePaths resolves the storage layout relative to the base directory.
func absolutizePaths(settings *Settings) error {
	base := settings.Storage.BaseDir
	if base == "" {
		return fmt.Errorf("storage.basedir must not be empty")
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("resolving storage.basedir: %w", err)
	}
	settings.Storage.BaseDir = abs

	if !filepath.IsAbs(settings.Storage.LedgerPath) {
		settings.Storage.LedgerPath = filepath.Join(abs, settings.Storage.LedgerPath)
	}
	if !filepath.IsAbs(settings.Store.ContentDir) {
		settings.Store.ContentDir = filepath.Join(abs, settings.Store.ContentDir)
	}
	if !filepath.IsAbs(settings.Cache.Dir) {
		settings.Cache.Dir = filepath.Join(abs, settings.Cache.Dir)
	}
	return nil
}

// Setting returns the current settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
		}
	})
	return settingsInstance
}

// SaveSettings saves the current settings to the given path as YAML.
func SaveSettings(path string, settings *Settings) error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling settings to yaml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
