package config

// Default paths for on-disk state
const (
	// DefaultDatabasePath is the default path for the books database
	DefaultDatabasePath = "./data/library.db"

	// DefaultCoversDir is where uploaded cover images are stored
	DefaultCoversDir = "./public/covers"

	// DefaultThumbnailsDir is where generated cover thumbnails are cached
	DefaultThumbnailsDir = "./public/thumbs"

	// DefaultCoverMaxBytes is the largest accepted cover upload (5 MiB)
	DefaultCoverMaxBytes = 5 * 1024 * 1024
)
