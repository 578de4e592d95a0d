package config

import (
	"strings"
	"time"

	"rics-valuation/internal/infrastructure/kvstore"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	StoreBackend        string // memory, sqlite, postgres or redis
	StoreDSN            string // sqlite file path or postgres URL
	StoreQuotaBytes     int
	ReportsKey          string
	RedisURL            string
	SessionSecret       string
	AccessPasscodeHash  string // bcrypt hash; empty disables login
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	AllowCrossSiteDev   bool
	SeedExamples        bool
	PhotoMaxWidth       int
	PhotoMaxHeight      int
	PhotoJPEGQuality    int
	WizardIdleTimeout   time.Duration
}

const (
	DefaultReportsKey = "ricsValuationReports"
	// DefaultQuotaBytes approximates the browser local-storage ceiling the tool grew up with.
	DefaultQuotaBytes = 5 * 1024 * 1024
)

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = viper.GetString("NODE_ENV")
	}
	if env == "" {
		env = "development"
	}
	logLevel := viper.GetString("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	backend := strings.ToLower(strings.TrimSpace(viper.GetString("STORE_BACKEND")))
	dsn := viper.GetString("STORE_DSN")
	if backend == "" {
		switch {
		case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
			backend = kvstore.BackendPostgres
		default:
			backend = kvstore.BackendSQLite
		}
	}
	if backend == kvstore.BackendSQLite && dsn == "" {
		dsn = "valuations.db"
	}

	quota := viper.GetInt("STORE_QUOTA_BYTES")
	if quota <= 0 {
		quota = DefaultQuotaBytes
	}
	reportsKey := viper.GetString("REPORTS_KEY")
	if reportsKey == "" {
		reportsKey = DefaultReportsKey
	}

	seed := true
	if s := viper.GetString("SEED_EXAMPLE_COMPARABLES"); s != "" {
		seed = strings.EqualFold(s, "true") || s == "1"
	}

	return &Config{
		Env:                 env,
		Port:                port,
		LogLevel:            logLevel,
		StoreBackend:        backend,
		StoreDSN:            dsn,
		StoreQuotaBytes:     quota,
		ReportsKey:          reportsKey,
		RedisURL:            viper.GetString("REDIS_URL"),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		AccessPasscodeHash:  viper.GetString("ACCESS_PASSCODE_HASH"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		SeedExamples:        seed,
		PhotoMaxWidth:       intOr(viper.GetInt("PHOTO_MAX_WIDTH"), 800),
		PhotoMaxHeight:      intOr(viper.GetInt("PHOTO_MAX_HEIGHT"), 600),
		PhotoJPEGQuality:    intOr(viper.GetInt("PHOTO_JPEG_QUALITY"), 70),
		WizardIdleTimeout:   viper.GetDuration("WIZARD_IDLE_TIMEOUT"),
	}, nil
}

func intOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// LoginEnabled reports whether the passcode gate is active.
func (c *Config) LoginEnabled() bool {
	return strings.TrimSpace(c.AccessPasscodeHash) != ""
}
