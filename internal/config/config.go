// Package config loads the storefront configuration with viper: a YAML
// file, STOREFRONT_* environment overrides and defaults for every key.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"storefront/internal/domain"
	"storefront/internal/feed"
	"storefront/internal/service"
)

const EnvPrefix = "STOREFRONT"

type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	// MCPOverHTTP mounts the MCP server under /api/admin/mcp.
	MCPOverHTTP bool
}

type Admin struct {
	Username string
	Password string
}

type Newsletter struct {
	Endpoint string
	ListID   string
}

// Config is the resolved configuration. Secrets are not part of it; they
// are read through secret.SecretStore.
type Config struct {
	Server         Server
	DataDir        string
	Database       domain.DatabaseConnection
	Admin          Admin
	Newsletter     Newsletter
	FallbackFile   string
	HistoryLimit   int
	UploadMaxBytes int64
	Schedule       service.ScheduleConfig
	Feeds          []feed.Job
	SecretsBackend string
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".local", "share", "storefront")
}

// New returns a viper instance with the defaults and environment binding
// in place. path is an explicit config file; when empty the file is looked
// up in ~/.config/storefront and the working directory.
func New(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "storefront"))
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.mcp_over_http", false)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("database.driver", string(domain.DatabaseDriverSQLite))
	v.SetDefault("database.path", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.password", "")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")
	v.SetDefault("newsletter.endpoint", "")
	v.SetDefault("newsletter.list_id", "")
	v.SetDefault("newsletter.api_key", "")
	v.SetDefault("fallback.file", "")
	v.SetDefault("history.limit", 50)
	v.SetDefault("uploads.max_bytes", service.DefaultMaxUploadBytes)
	v.SetDefault("schedule.click_rollup", "@every 5m")
	v.SetDefault("schedule.click_prune", "@daily")
	v.SetDefault("schedule.newsletter_sync", "@every 10m")
	v.SetDefault("schedule.feed_import", "@every 6h")
	v.SetDefault("clicks.retention", 90*24*time.Hour)
	v.SetDefault("newsletter.sync_batch", 100)
	v.SetDefault("secrets.backend", "config")
	v.SetDefault("secrets.keychain_service", "storefront")
	return v
}

// Load reads the config file, if any, and resolves the configuration.
// A missing file is not an error unless it was named explicitly.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return Resolve(v)
}

// Resolve builds a Config from v without touching the filesystem.
func Resolve(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: Server{
			Addr:            v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			MCPOverHTTP:     v.GetBool("server.mcp_over_http"),
		},
		DataDir: v.GetString("data_dir"),
		Database: domain.DatabaseConnection{
			Driver:   domain.DatabaseDriver(strings.ToLower(v.GetString("database.driver"))),
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			Database: v.GetString("database.name"),
			Username: v.GetString("database.user"),
			SSLMode:  v.GetString("database.sslmode"),
			Extra:    v.GetStringMapString("database.extra"),
		},
		Admin: Admin{
			Username: v.GetString("admin.username"),
			Password: v.GetString("admin.password"),
		},
		Newsletter: Newsletter{
			Endpoint: v.GetString("newsletter.endpoint"),
			ListID:   v.GetString("newsletter.list_id"),
		},
		FallbackFile:   v.GetString("fallback.file"),
		HistoryLimit:   v.GetInt("history.limit"),
		UploadMaxBytes: v.GetInt64("uploads.max_bytes"),
		Schedule: service.ScheduleConfig{
			ClickRollup:    v.GetString("schedule.click_rollup"),
			ClickPrune:     v.GetString("schedule.click_prune"),
			NewsletterSync: v.GetString("schedule.newsletter_sync"),
			FeedImport:     v.GetString("schedule.feed_import"),
			ClickRetention: v.GetDuration("clicks.retention"),
			SyncBatch:      v.GetInt("newsletter.sync_batch"),
		},
		SecretsBackend: v.GetString("secrets.backend"),
	}

	switch cfg.Database.Driver {
	case domain.DatabaseDriverSQLite:
		// For SQLite the connection host is the database file.
		cfg.Database.Host = v.GetString("database.path")
		if cfg.Database.Host == "" {
			cfg.Database.Host = filepath.Join(cfg.DataDir, "storefront.db")
		}
	case domain.DatabaseDriverPostgres, domain.DatabaseDriverMySQL, domain.DatabaseDriverMongoDB:
		if cfg.Database.Host == "" {
			return nil, fmt.Errorf("database.host is required for %s", cfg.Database.Driver)
		}
	default:
		return nil, fmt.Errorf("unsupported database.driver %q", cfg.Database.Driver)
	}
	if err := v.UnmarshalKey("feeds", &cfg.Feeds); err != nil {
		return nil, fmt.Errorf("decode feeds: %w", err)
	}
	for i, f := range cfg.Feeds {
		if f.Name == "" || f.Source == "" {
			return nil, fmt.Errorf("feeds[%d] needs a name and a source", i)
		}
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("history.limit must be positive, got %d", cfg.HistoryLimit)
	}
	if cfg.Admin.Username == "" {
		return nil, fmt.Errorf("admin.username must not be empty")
	}
	return cfg, nil
}
