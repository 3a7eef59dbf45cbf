package http

import (
	"context"
	"mime/multipart"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// This file gathers the interfaces the controllers depend on. The
// concrete implementations live in database/books, covers and security.

// BookStore is the books repository.
type BookStore interface {
	ListBooks(ctx context.Context) ([]entities.Book, error)
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
	AddBook(ctx context.Context, book *entities.Book) (uint, error)
	UpdateBook(ctx context.Context, id uint, book *entities.Book) error
	DeleteBook(ctx context.Context, id uint) error
}

// BookReader is the read-only part of BookStore used by the JSON API.
type BookReader interface {
	ListBooks(ctx context.Context) ([]entities.Book, error)
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
}

// CoverFiles stores uploaded covers.
type CoverFiles interface {
	Save(header *multipart.FileHeader) (string, error)
	Path(name string) (string, error)
	MaxBytes() int64
}

// ThumbnailProvider returns the on-disk path of a cover thumbnail.
type ThumbnailProvider interface {
	Thumbnail(name string) (string, error)
}

// Flasher carries one-shot messages between a redirect and the next page.
type Flasher interface {
	PutFlash(ctx context.Context, message string)
	PopFlash(ctx context.Context) string
}

// HealthChecker reports whether the database answers.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
