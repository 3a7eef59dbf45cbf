// Package database provides the data access layer for the application.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup and "create table if absent"
//	└── books/           # Book CRUD operations
//
// NewDatabase is the storage initializer: it creates the data directory for
// SQLite, opens the connection pool and creates the books table when it does
// not exist yet. It never alters an existing table.
//
//	db, err := database.NewDatabase(cfg.Database)
//	repo := books.NewRepository(db.DB)
//	id, err := repo.AddBook(ctx, &entities.Book{Title: "Dune", Author: "Frank Herbert"})
//
// The Repository is constructed once in the entrypoint and injected into the
// HTTP layer; there is no package-level connection.
package database
