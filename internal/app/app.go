// Package app wires the subsystem together: configuration, ledger, content
// directories, cache, and store are constructed once here and handed to
// callers by reference.
package app

import (
	"fmt"
	"time"

	"github.com/mvirtane/imagevault/internal/conf"
	"github.com/mvirtane/imagevault/internal/contentdir"
	"github.com/mvirtane/imagevault/internal/httpclient"
	"github.com/mvirtane/imagevault/internal/imagecache"
	"github.com/mvirtane/imagevault/internal/imagestore"
	"github.com/mvirtane/imagevault/internal/ledger"
	"github.com/mvirtane/imagevault/internal/observability/metrics"
)

// App holds the constructed components of the subsystem.
type App struct {
	Settings *conf.Settings
	Ledger   ledger.Interface
	Cache    *imagecache.Cache
	Store    *imagestore.Store
	Metrics  *metrics.Metrics

	httpClient *httpclient.Client
}

// New builds the full component graph from settings. The ledger is opened
// as part of construction.
func New(settings *conf.Settings) (*App, error) {
	if err := conf.ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	m, err := metrics.NewMetrics()
	if err != nil {
		return nil, err
	}

	store := ledger.New(settings.Storage.LedgerPath)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.DefaultTimeout = conf.ParseDuration(settings.Download.Timeout, httpclient.DefaultTimeout)
	clientCfg.UserAgent = settings.Download.UserAgent
	client := httpclient.New(&clientCfg)

	cacheDir, err := contentdir.New(settings.Cache.Dir, client)
	if err != nil {
		return nil, err
	}
	storeDir, err := contentdir.New(settings.Store.ContentDir, client)
	if err != nil {
		return nil, err
	}

	maxAgeHours, err := conf.ParseRetentionPeriod(settings.Cache.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("invalid cache.maxage: %w", err)
	}

	cache := imagecache.New(store, cacheDir, m.ImageCache, imagecache.Config{
		MaxSize:      settings.Cache.MaxSize,
		CleanupRatio: settings.Cache.CleanupRatio,
		MaxAge:       time.Duration(maxAgeHours) * time.Hour,
		Debug:        settings.Cache.Debug || settings.Debug,
	})

	imgStore := imagestore.New(store, storeDir, m.ImageStore, imagestore.Config{
		MaxTrainingImages: settings.Store.MaxTrainingImages,
		Debug:             settings.Store.Debug || settings.Debug,
	})

	return &App{
		Settings:   settings,
		Ledger:     store,
		Cache:      cache,
		Store:      imgStore,
		Metrics:    m,
		httpClient: client,
	}, nil
}

// Close releases the ledger connection and idle HTTP connections.
func (a *App) Close() error {
	a.httpClient.Close()
	return a.Ledger.Close()
}
