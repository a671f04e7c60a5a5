package main

import (
	"log/slog"
	"os"

	"github.com/mvirtane/imagevault/cmd"
	"github.com/mvirtane/imagevault/internal/conf"
	"github.com/mvirtane/imagevault/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("Failed to load configuration", "error", err)
	}

	if settings.Main.Log.Enabled {
		fileLogger, closeLogger, err := logging.NewFileLogger(
			settings.Main.Log.Path,
			settings.Main.Name,
			slog.LevelInfo,
			logging.FileLoggerOptions{
				MaxSizeMB:  int(settings.Main.Log.MaxSize / (1024 * 1024)),
				MaxBackups: settings.Main.Log.MaxBackups,
				MaxAgeDays: settings.Main.Log.MaxAge,
			},
		)
		if err != nil {
			logging.Fatal("Failed to set up file logging", "error", err)
		}
		defer func() {
			_ = closeLogger()
		}()
		slog.SetDefault(fileLogger)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
