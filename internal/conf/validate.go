package conf

import (
	"fmt"
)

// ValidateSettings checks the loaded settings for values the subsystem cannot
// operate with. It returns the first problem found.
func ValidateSettings(settings *Settings) error {
	if settings.Storage.BaseDir == "" {
		return fmt.Errorf("storage.basedir must not be empty")
	}
	if settings.Storage.LedgerPath == "" {
		return fmt.Errorf("storage.ledgerpath must not be empty")
	}
	if settings.Store.MaxTrainingImages <= 0 {
		return fmt.Errorf("store.maxtrainingimages must be positive, got %d", settings.Store.MaxTrainingImages)
	}
	if settings.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache.maxsize must be positive, got %d", settings.Cache.MaxSize)
	}
	if settings.Cache.CleanupRatio <= 0 || settings.Cache.CleanupRatio > 1 {
		return fmt.Errorf("cache.cleanupratio must be in (0, 1], got %f", settings.Cache.CleanupRatio)
	}
	if _, err := ParseRetentionPeriod(settings.Cache.MaxAge); err != nil {
		return fmt.Errorf("cache.maxage: %w", err)
	}
	return nil
}
