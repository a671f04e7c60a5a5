// Package cleanup implements the subcommand running cache eviction on demand.
package cleanup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvirtane/imagevault/internal/app"
	"github.com/mvirtane/imagevault/internal/conf"
)

// Command creates the cleanup subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Evict cache entries until the cache is within its size target",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			if err := a.Cache.CleanupCache(); err != nil {
				return err
			}

			stats, err := a.Cache.CacheStats()
			if err != nil {
				return err
			}
			fmt.Printf("Cache now holds %d entries, %d bytes\n", stats.ImageCount, stats.TotalSize)
			return nil
		},
	}

	return cmd
}
