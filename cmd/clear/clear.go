// Package clear implements the subcommand wiping cache and store data.
package clear

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvirtane/imagevault/internal/app"
	"github.com/mvirtane/imagevault/internal/conf"
)

// Command creates the clear subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var clearCache bool
	var clearStore bool
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached or stored image data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !clearCache && !clearStore && !clearAll {
				return fmt.Errorf("nothing to clear, pass --cache, --store or --all")
			}

			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			if clearCache || clearAll {
				if err := a.Cache.Clear(); err != nil {
					return err
				}
				fmt.Println("Cache cleared")
			}
			if clearStore || clearAll {
				if err := a.Store.ClearAllData(); err != nil {
					return err
				}
				fmt.Println("Store cleared")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearCache, "cache", false, "Clear the remote image cache")
	cmd.Flags().BoolVar(&clearStore, "store", false, "Clear training images, generated photos and the model name")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Clear everything")

	return cmd
}
