package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/log"
)

type Application struct {
	Env       string `mapstructure:"env"        json:"env"`
	Host      string `mapstructure:"host"       json:"host"`
	SecretKey string `mapstructure:"secret_key" json:"-"`
	Port      int    `mapstructure:"port"       json:"port"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	TimeZone       string `mapstructure:"timezone"        json:"timezone"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int    `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int    `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Otel struct {
	Host    string `mapstructure:"host"    json:"host"`
	Port    int    `mapstructure:"port"    json:"port"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
}

// Backend locates the remote storefront API. Every call made through it is bounded by
// Timeout and guarded by a circuit breaker that opens after BreakerFailures consecutive
// failures.
type Backend struct {
	CartURL         string        `mapstructure:"cart_url"         json:"cart_url"`
	ProductURL      string        `mapstructure:"product_url"      json:"product_url"`
	UserURL         string        `mapstructure:"user_url"         json:"user_url"`
	Timeout         time.Duration `mapstructure:"timeout"          json:"timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures" json:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" json:"breaker_cooldown"`
}

type Session struct {
	Driver    string `mapstructure:"driver"    json:"driver"`
	Path      string `mapstructure:"path"      json:"path"`
	Namespace string `mapstructure:"namespace" json:"namespace"`
}

type Cart struct {
	ClearOnFetchError bool   `mapstructure:"clear_on_fetch_error" json:"clear_on_fetch_error"`
	SyncChannel       string `mapstructure:"sync_channel"         json:"sync_channel"`
	SyncFile          string `mapstructure:"sync_file"            json:"sync_file"`
}

type Export struct {
	StoreName string `mapstructure:"store_name" json:"store_name"`
	OutputDir string `mapstructure:"output_dir" json:"output_dir"`
}

type Log struct {
	Path string `mapstructure:"path" json:"path"`
}

type Config struct {
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Application `mapstructure:"application" json:"application"`
	Otel        `mapstructure:"otel"        json:"otel"`
	Backend     `mapstructure:"backend"     json:"backend"`
	Session     `mapstructure:"session"     json:"session"`
	Cart        `mapstructure:"cart"        json:"cart"`
	Export      `mapstructure:"export"      json:"export"`
	Log         `mapstructure:"log"         json:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.env", "development")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 5000)
	v.SetDefault("backend.cart_url", "http://localhost:5000/api/cart")
	v.SetDefault("backend.product_url", "http://localhost:5000/api/products")
	v.SetDefault("backend.user_url", "http://localhost:5000/api/users")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.breaker_failures", 5)
	v.SetDefault("backend.breaker_cooldown", 30*time.Second)
	v.SetDefault("session.driver", "file")
	v.SetDefault("session.path", ".storefront/session.json")
	v.SetDefault("session.namespace", "storefront:session")
	v.SetDefault("cart.clear_on_fetch_error", true)
	v.SetDefault("cart.sync_channel", "storefront:cart:events")
	v.SetDefault("cart.sync_file", ".storefront/cart-events.log")
	v.SetDefault("export.store_name", "KVH General Store")
	v.SetDefault("export.output_dir", ".")
	v.SetDefault("log.path", filepath.Join(os.TempDir(), "storefront.log"))
	v.SetDefault("db.migration_path", "file://migrations")
	v.SetDefault("db.max_connections", 10)
	v.SetDefault("db.min_connections", 2)
}

// Load reads ./env/<filename>.yaml when present and overlays environment variables, where
// the key db.host is read from DB_HOST. A missing file is not an error.
func Load(c context.Context, filename string) (*Config, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "config Load").
		Str("filename", filename).
		Logger()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(filename)
	v.AddConfigPath("./env")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
	logger.Info().Msg("reading config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed reading config with error=%w", err)
		}
		logger.Info().Msg("config file not found using defaults and environment")
	}
	logger.Info().Msg("read config")

	logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
	logger.Info().Msg("unmarshaling config")
	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed unmarshaling config with error=%w", err)
	}
	logger.Info().Msg("unmarshaled config")

	return &cfg, nil
}
