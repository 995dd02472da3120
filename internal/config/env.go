package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config carries all externally supplied settings. Everything has a
// usable local-dev default; nothing is read from the environment after
// startup.
type Config struct {
	AppAddr     string
	GinMode     string
	StoreDriver string
	MongoURI    string
	MongoDB     string
	CORSOrigin  string
	JWTSecret   string
	LogLevel    string
	LogFormat   string
}

// Load reads configuration from the environment.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("GIN_MODE", "")
	v.SetDefault("STORE_DRIVER", "mongo")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "devserve")
	v.SetDefault("CORS_ORIGIN", "http://localhost:3000")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	return Config{
		AppAddr:     strings.TrimSpace(v.GetString("APP_ADDR")),
		GinMode:     strings.TrimSpace(v.GetString("GIN_MODE")),
		StoreDriver: strings.TrimSpace(v.GetString("STORE_DRIVER")),
		MongoURI:    strings.TrimSpace(v.GetString("MONGO_URI")),
		MongoDB:     strings.TrimSpace(v.GetString("MONGO_DB")),
		CORSOrigin:  strings.TrimSpace(v.GetString("CORS_ORIGIN")),
		JWTSecret:   v.GetString("JWT_SECRET"),
		LogLevel:    strings.TrimSpace(v.GetString("LOG_LEVEL")),
		LogFormat:   strings.TrimSpace(v.GetString("LOG_FORMAT")),
	}
}
