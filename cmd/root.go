package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvirtane/imagevault/cmd/cleanup"
	"github.com/mvirtane/imagevault/cmd/clear"
	"github.com/mvirtane/imagevault/cmd/stats"
	"github.com/mvirtane/imagevault/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imagevault",
		Short: "imagevault local asset cache-and-store CLI",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		stats.Command(settings),
		cleanup.Command(settings),
		clear.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines global flags shared by all subcommands.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().StringVar(&settings.Storage.BaseDir, "basedir", settings.Storage.BaseDir, "Base directory for locally held assets")
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		cobra.CheckErr(err)
	}
}
