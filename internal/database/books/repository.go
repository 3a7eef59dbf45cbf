// Package books provides database operations for book records.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	id, err := repo.AddBook(ctx, &entities.Book{Title: "Dune", Author: "Frank Herbert"})
//	book, err := repo.GetBook(ctx, id)
package books

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// ErrNotFound is returned when no book has the requested id.
var ErrNotFound = errors.New("book not found")

// updatableColumns are overwritten on every update. id is never among them.
var updatableColumns = []string{
	"title",
	"author",
	"year",
	"pages",
	"read_pages",
	"status",
	"rating",
	"review",
	"cover_filename",
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListBooks returns every book ordered by id.
func (r *Repository) ListBooks(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// GetBook returns the book with the given id, or ErrNotFound.
func (r *Repository) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return &book, nil
}

// AddBook inserts a new row and returns the id assigned by the store.
// Any id already set on book is ignored. No duplicate checking is done.
func (r *Repository) AddBook(ctx context.Context, book *entities.Book) (uint, error) {
	row := *book
	row.ID = 0
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("add book: %w", err)
	}
	book.ID = row.ID
	return row.ID, nil
}

// UpdateBook overwrites every column of the stored book with the values in
// book, nil and empty values included. Returns ErrNotFound if id is absent.
func (r *Repository) UpdateBook(ctx context.Context, id uint, book *entities.Book) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Book{}).
		Where("id = ?", id).
		Select(updatableColumns).
		Updates(book)
	if result.Error != nil {
		return fmt.Errorf("update book %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBook hard-deletes a book. Deleting an id that does not exist is not
// an error.
func (r *Repository) DeleteBook(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&entities.Book{}, id).Error; err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	return nil
}

// CountBooks returns the number of stored books.
func (r *Repository) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}

// CoverFilenames returns every cover filename referenced by a book.
func (r *Repository) CoverFilenames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&entities.Book{}).
		Where("cover_filename IS NOT NULL AND cover_filename <> ''").
		Pluck("cover_filename", &names).Error
	if err != nil {
		return nil, fmt.Errorf("list cover filenames: %w", err)
	}
	return names, nil
}
