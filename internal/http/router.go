package http

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/security"
)

// templateFuncs are available to every template.
var templateFuncs = template.FuncMap{
	"itoa": strconv.Itoa,
	"intValue": func(v *int) string {
		if v == nil {
			return ""
		}
		return strconv.Itoa(*v)
	},
	"coverURL": func(name string) string {
		return "/covers/" + url.PathEscape(name)
	},
	"thumbURL": func(name string) string {
		return "/thumbs/" + url.PathEscape(name)
	},
	"slug": slug,
}

// slug turns a display value into a single CSS class token:
// "want to read" becomes "want-to-read".
func slug(v fmt.Stringer) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v.String())), " ", "-")
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(security.SecurityHeadersMiddleware())
	router.Use(security.ReadOnlyMiddleware(cfg.ReadOnly))

	if cfg.RateLimiter != nil {
		router.Use(cfg.RateLimiter.Middleware())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(security.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	var flash Flasher
	if cfg.Sessions != nil {
		router.Use(cfg.Sessions.SessionLoadSave())
		flash = cfg.Sessions
	}

	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseGlob(cfg.TemplatesPath + "/*.html"))
	router.SetHTMLTemplate(tmpl)

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}
	if cfg.CoversDir != "" {
		router.Static("/covers", cfg.CoversDir)
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	booksController := NewBooksController(cfg.Books, cfg.Covers, cfg.CoverRemover, flash, cfg.Now)
	api := NewAPIController(cfg.Books)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Books API endpoints
	router.GET("/api/books", api.GetAllBooks)
	router.GET("/api/books/:id", api.GetBook)

	// Thumbnails
	if cfg.Covers != nil {
		coversController := NewCoversController(cfg.Covers, cfg.Thumbnails)
		router.GET("/thumbs/:filename", coversController.GetThumbnail)
	}

	// UI routes
	router.GET("/", booksController.ListBooks)
	router.GET("/add", booksController.NewBookForm)
	router.POST("/add", booksController.CreateBook)
	router.GET("/book/:id", booksController.ViewBook)
	router.GET("/book/:id/edit", booksController.EditBookForm)
	router.POST("/book/:id/edit", booksController.UpdateBook)
	router.POST("/book/:id/delete", booksController.DeleteBook)

	return router
}
