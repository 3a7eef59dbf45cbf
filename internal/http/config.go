package http

import (
	"time"

	"github.com/mrlokans/bookshelf/internal/security"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Books    BookStore
	Database HealthChecker

	// Covers
	Covers       CoverFiles
	CoversDir    string
	Thumbnails   ThumbnailProvider
	CoverRemover tasks.CoverRemover

	// Security. An empty CSRFSecret disables CSRF checks; a nil Sessions
	// disables flash messages.
	CSRFSecret    []byte
	SecureCookies bool
	Sessions      *security.SessionManager
	RateLimiter   *security.RateLimiter
	ReadOnly      bool

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Application info
	Version string

	// Now is the clock used by validation. Defaults to time.Now.
	Now func() time.Time
}
