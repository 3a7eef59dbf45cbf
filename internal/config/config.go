package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"   // Single file database (default)
	DatabaseDriverPostgres DatabaseDriver = "postgres" // External server, DSN required
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Covers
		Tasks
		CoverSweep
		Security
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver   DatabaseDriver
		Path     string // SQLite file, its directory is created on startup
		DSN      string // Postgres connection string
		LogLevel string // silent, error, warn, info
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Covers struct {
		Dir            string
		MaxBytes       int64
		ThumbnailsDir  string
		ThumbnailWidth int
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	CoverSweep struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Security struct {
		CSRFEnabled     bool
		CSRFSecret      string
		SecureCookies   bool // Set to true when served over HTTPS
		SessionLifetime time.Duration
		RateLimitRPS    float64 // Requests per second per IP on write routes, 0 disables
		RateLimitBurst  int
		ReadOnly        bool // Reject every non-GET request
	}
)

// loadDotEnv reads an optional .env file into the process environment.
// Variables already set in the environment win.
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("WARNING: failed to load .env file: %v", err)
	}
}

func NewConfig() *Config {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 3000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_log_level", "warn")

	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	v.SetDefault("covers_dir", DefaultCoversDir)
	v.SetDefault("covers_max_bytes", DefaultCoverMaxBytes)
	v.SetDefault("thumbnails_dir", DefaultThumbnailsDir)
	v.SetDefault("thumbnail_width", 240)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "5m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("cover_sweep_enabled", false)
	v.SetDefault("cover_sweep_schedule", "0 3 * * *") // Daily at 03:00

	// Security defaults
	v.SetDefault("csrf_enabled", true)
	v.SetDefault("csrf_secret", "") // Auto-generated if empty
	v.SetDefault("secure_cookies", false)
	v.SetDefault("session_lifetime", "24h")
	v.SetDefault("rate_limit_rps", 0)
	v.SetDefault("rate_limit_burst", 10)
	v.SetDefault("read_only", false)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver:   DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:     v.GetString("DATABASE_PATH"),
			DSN:      v.GetString("DATABASE_DSN"),
			LogLevel: v.GetString("DATABASE_LOG_LEVEL"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Covers: Covers{
			Dir:            v.GetString("COVERS_DIR"),
			MaxBytes:       v.GetInt64("COVERS_MAX_BYTES"),
			ThumbnailsDir:  v.GetString("THUMBNAILS_DIR"),
			ThumbnailWidth: v.GetInt("THUMBNAIL_WIDTH"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		CoverSweep: CoverSweep{
			Enabled:  v.GetBool("COVER_SWEEP_ENABLED"),
			Schedule: v.GetString("COVER_SWEEP_SCHEDULE"),
		},
		Security: Security{
			CSRFEnabled:     v.GetBool("CSRF_ENABLED"),
			CSRFSecret:      v.GetString("CSRF_SECRET"),
			SecureCookies:   v.GetBool("SECURE_COOKIES"),
			SessionLifetime: v.GetDuration("SESSION_LIFETIME"),
			RateLimitRPS:    v.GetFloat64("RATE_LIMIT_RPS"),
			RateLimitBurst:  v.GetInt("RATE_LIMIT_BURST"),
			ReadOnly:        v.GetBool("READ_ONLY"),
		},
	}
}
