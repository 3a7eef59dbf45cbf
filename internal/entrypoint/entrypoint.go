package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/security"
	"github.com/mrlokans/bookshelf/internal/seed"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Background workers stop after the last request has been answered
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// Run wires storage, covers, background work and the router, then serves.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookshelf v%s", version)

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	repo := books.NewRepository(db.DB)

	coverStore, err := covers.NewStore(cfg.Covers.Dir, cfg.Covers.MaxBytes)
	if err != nil {
		log.Fatalf("Failed to initialize cover store: %v", err)
	}
	thumbnails, err := covers.NewThumbnailCache(coverStore, cfg.Covers.ThumbnailsDir, cfg.Covers.ThumbnailWidth)
	if err != nil {
		log.Fatalf("Failed to initialize thumbnail cache: %v", err)
	}
	log.Printf("Covers stored in %s (thumbnails in %s)", coverStore.Dir(), thumbnails.Dir())

	bgCtx, bgCancel := context.WithCancel(context.Background())

	var taskClient *tasks.Client
	var coverRemover tasks.CoverRemover = tasks.NewSyncCoverRemover(coverStore, thumbnails)
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		})
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		taskClient.Register(tasks.NewRemoveCoverQueue(coverStore, thumbnails))
		taskClient.Start(bgCtx)
		coverRemover = tasks.NewQueuedCoverRemover(taskClient)
	} else {
		log.Printf("Task queue disabled, covers are removed synchronously")
	}

	var sweeper *scheduler.CoverSweeper
	if cfg.CoverSweep.Enabled {
		sweeper = scheduler.NewCoverSweeper(repo, coverStore, thumbnails, cfg.CoverSweep.Schedule)
		if err := sweeper.Start(bgCtx); err != nil {
			log.Fatalf("Failed to start cover sweep: %v", err)
		}
	}

	sessions, err := newSessionManager(db, cfg.Security)
	if err != nil {
		log.Fatalf("Failed to initialize sessions: %v", err)
	}

	csrfSecret, err := loadCSRFSecret(cfg.Security)
	if err != nil {
		log.Fatalf("Failed to prepare CSRF secret: %v", err)
	}

	var rateLimiter *security.RateLimiter
	if cfg.Security.RateLimitRPS > 0 {
		rateLimiter = security.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
		log.Printf("Rate limiting writes to %.2f req/s per IP (burst %d)", cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
	}

	if cfg.Security.ReadOnly {
		log.Printf("Read-only mode enabled - write operations will be blocked")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Books:         repo,
		Database:      db,
		Covers:        coverStore,
		CoversDir:     coverStore.Dir(),
		Thumbnails:    thumbnails,
		CoverRemover:  coverRemover,
		CSRFSecret:    csrfSecret,
		SecureCookies: cfg.Security.SecureCookies,
		Sessions:      sessions,
		RateLimiter:   rateLimiter,
		ReadOnly:      cfg.Security.ReadOnly,
		TemplatesPath: cfg.UI.TemplatesPath,
		StaticPath:    cfg.UI.StaticPath,
		Version:       version,
	})

	onShutdown := func(ctx context.Context) {
		if sweeper != nil {
			sweeper.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			if err := taskClient.Close(); err != nil {
				log.Printf("Failed to close task database: %v", err)
			}
		}
		bgCancel()
		if rateLimiter != nil {
			rateLimiter.Stop()
		}
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}

	Serve(router, cfg, onShutdown)
}

// Seed fills an empty library with the sample books.
func Seed(cfg *config.Config) error {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	inserted, err := seed.Seed(context.Background(), books.NewRepository(db.DB))
	if err != nil {
		return err
	}
	log.Printf("Seeded %d books", inserted)
	return nil
}

// newSessionManager keeps sessions in the main database when it is SQLite
// and in memory otherwise.
func newSessionManager(db *database.Database, cfg config.Security) (*security.SessionManager, error) {
	var store scs.Store
	if db.Driver == config.DatabaseDriverSQLite {
		sqlDB, err := db.SQL()
		if err != nil {
			return nil, err
		}
		store, err = security.NewSQLiteSessionStore(sqlDB)
		if err != nil {
			return nil, err
		}
	} else {
		store = security.NewMemorySessionStore()
	}
	return security.NewSessionManager(store, cfg.SessionLifetime, cfg.SecureCookies), nil
}

// loadCSRFSecret returns nil when CSRF is disabled. A configured secret is read
// as hex when possible and as raw bytes otherwise; without one a random
// secret is generated, so forms do not survive a restart.
func loadCSRFSecret(cfg config.Security) ([]byte, error) {
	if !cfg.CSRFEnabled {
		log.Printf("WARNING: CSRF protection is disabled")
		return nil, nil
	}
	if cfg.CSRFSecret != "" {
		if secret, err := hex.DecodeString(cfg.CSRFSecret); err == nil && len(secret) == 32 {
			return secret, nil
		}
		if len(cfg.CSRFSecret) != 32 {
			return nil, fmt.Errorf("CSRF_SECRET must be 32 bytes or 64 hex characters")
		}
		return []byte(cfg.CSRFSecret), nil
	}

	secret := securecookie.GenerateRandomKey(32)
	if secret == nil {
		return nil, fmt.Errorf("failed to generate CSRF secret")
	}
	log.Printf("Generated CSRF secret (set CSRF_SECRET to persist)")
	return secret, nil
}
