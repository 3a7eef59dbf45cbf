package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// BooksListResponse is the body of GET /api/books.
type BooksListResponse struct {
	Books []entities.Book `json:"books"`
	Count int             `json:"count"`
}

// APIController exposes the library as read-only JSON.
type APIController struct {
	reader BookReader
}

func NewAPIController(reader BookReader) *APIController {
	return &APIController{reader: reader}
}

// GetAllBooks returns every book.
// GET /api/books
func (ac *APIController) GetAllBooks(c *gin.Context) {
	all, err := ac.reader.ListBooks(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	if all == nil {
		all = []entities.Book{}
	}
	c.JSON(http.StatusOK, BooksListResponse{Books: all, Count: len(all)})
}

// GetBook returns one book.
// GET /api/books/:id
func (ac *APIController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := ac.reader.GetBook(c.Request.Context(), id)
	if errors.Is(err, books.ErrNotFound) {
		respondNotFound(c, "Book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}
