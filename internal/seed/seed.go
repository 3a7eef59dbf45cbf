// Package seed fills an empty library with sample books.
package seed

import (
	"context"
	"fmt"
	"log"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Store is the subset of the books repository the seeder needs.
type Store interface {
	CountBooks(ctx context.Context) (int64, error)
	AddBook(ctx context.Context, book *entities.Book) (uint, error)
}

// Seed inserts the sample library when the books table is empty and returns
// the number of books inserted. A non-empty table is left untouched.
func Seed(ctx context.Context, store Store) (int, error) {
	count, err := store.CountBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	if count > 0 {
		log.Printf("Library already contains %d books, skipping seed", count)
		return 0, nil
	}

	inserted := 0
	for _, book := range SampleBooks() {
		if _, err := store.AddBook(ctx, &book); err != nil {
			return inserted, fmt.Errorf("add %q: %w", book.Title, err)
		}
		log.Printf("Added %q by %s", book.Title, book.Author)
		inserted++
	}
	return inserted, nil
}

// SampleBooks returns a fresh copy of the sample library.
func SampleBooks() []entities.Book {
	return []entities.Book{
		sample("Crime and Punishment", "Fyodor Dostoevsky", 672, 672, 1866, entities.BookStatusRead, 5,
			"A profound novel about moral dilemmas and redemption"),
		sample("1984", "George Orwell", 328, 150, 1949, entities.BookStatusInProgress, 4,
			"Disturbingly relevant even today"),
		sample("The Master and Margarita", "Mikhail Bulgakov", 480, 0, 1967, entities.BookStatusWantToRead, 0, ""),
		sample("To Kill a Mockingbird", "Harper Lee", 281, 281, 1960, entities.BookStatusRead, 5,
			"A beautiful story about justice and childhood"),
		sample("Dune", "Frank Herbert", 412, 0, 1965, entities.BookStatusWantToRead, 0, ""),
		sample("The Great Gatsby", "F. Scott Fitzgerald", 180, 180, 1925, entities.BookStatusRead, 4,
			"A classic American novel about the Jazz Age"),
		sample("Harry Potter and the Philosopher's Stone", "J.K. Rowling", 320, 320, 1997, entities.BookStatusRead, 5,
			"Magical beginning of an amazing series"),
	}
}

func sample(title, author string, pages, readPages, year int, status entities.BookStatus, rating int, review string) entities.Book {
	return entities.Book{
		Title:     title,
		Author:    author,
		Pages:     &pages,
		ReadPages: &readPages,
		Year:      &year,
		Status:    status,
		Rating:    &rating,
		Review:    review,
	}
}
