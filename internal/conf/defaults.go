// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "imagevault")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "imagevault.log")
	viper.SetDefault("main.log.maxsize", 104857600)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	viper.SetDefault("storage.basedir", "data/")
	viper.SetDefault("storage.ledgerpath", "ledger.db")

	viper.SetDefault("store.debug", false)
	viper.SetDefault("store.contentdir", "content/")
	viper.SetDefault("store.maxtrainingimages", 3)

	viper.SetDefault("cache.debug", false)
	viper.SetDefault("cache.dir", "cache/")
	viper.SetDefault("cache.maxsize", 104857600) // 100 MiB
	viper.SetDefault("cache.cleanupratio", 0.8)
	viper.SetDefault("cache.maxage", "7d")

	viper.SetDefault("download.timeout", "30s")
	viper.SetDefault("download.useragent", "imagevault")
}
