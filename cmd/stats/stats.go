// Package stats implements the subcommand reporting storage and cache usage.
package stats

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvirtane/imagevault/internal/app"
	"github.com/mvirtane/imagevault/internal/conf"
)

// Command creates the stats subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print storage and cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			storeStats, err := a.Store.GetStorageStats()
			if err != nil {
				return err
			}
			cacheStats, err := a.Cache.CacheStats()
			if err != nil {
				return err
			}

			fmt.Printf("Training images:  %d\n", storeStats.TrainingImagesCount)
			fmt.Printf("Generated photos: %d\n", storeStats.GeneratedPhotosCount)
			fmt.Printf("Store size:       %d bytes\n", storeStats.TotalStorageSize)
			fmt.Printf("Cache entries:    %d\n", cacheStats.ImageCount)
			fmt.Printf("Cache size:       %d bytes\n", cacheStats.TotalSize)
			if !cacheStats.LastCleanup.IsZero() {
				fmt.Printf("Last cleanup:     %s\n", cacheStats.LastCleanup.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	return cmd
}
