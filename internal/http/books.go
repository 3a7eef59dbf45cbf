package http

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/tasks"
	"github.com/mrlokans/bookshelf/internal/validation"
)

// coverField is the multipart field of the cover upload.
const coverField = "cover"

// formOverhead is allowed on top of the cover limit for the text fields of
// a multipart form.
const formOverhead = 1 << 20

// ratingOptions are offered in the rating select, after an empty choice.
var ratingOptions = []int{0, 1, 2, 3, 4, 5}

// BooksController serves the HTML pages of the library.
type BooksController struct {
	store   BookStore
	covers  CoverFiles
	remover tasks.CoverRemover
	flash   Flasher
	now     func() time.Time
}

// NewBooksController creates a controller. covers, remover and flash may be
// nil: uploads are then ignored, old covers are kept on disk and no flash
// messages are shown.
func NewBooksController(store BookStore, covers CoverFiles, remover tasks.CoverRemover, flash Flasher, now func() time.Time) *BooksController {
	if now == nil {
		now = time.Now
	}
	return &BooksController{
		store:   store,
		covers:  covers,
		remover: remover,
		flash:   flash,
		now:     now,
	}
}

// ListBooks renders every book.
// GET /
func (bc *BooksController) ListBooks(c *gin.Context) {
	all, err := bc.store.ListBooks(c.Request.Context())
	if err != nil {
		respondPageError(c, err, "list books", "Server Error")
		return
	}

	c.HTML(http.StatusOK, "books", pageData(c, bc.flash, gin.H{
		"Books":      all,
		"TotalBooks": len(all),
	}))
}

// ViewBook renders one book.
// GET /book/:id
func (bc *BooksController) ViewBook(c *gin.Context) {
	book, ok := bc.loadBook(c, "Failed to get book")
	if !ok {
		return
	}

	c.HTML(http.StatusOK, "book", pageData(c, bc.flash, gin.H{
		"Book": book,
	}))
}

// NewBookForm renders an empty add form.
// GET /add
func (bc *BooksController) NewBookForm(c *gin.Context) {
	bc.renderForm(c, http.StatusOK, nil, validation.Candidate{}, "")
}

// CreateBook validates the form, stores the optional cover and inserts the book.
// POST /add
func (bc *BooksController) CreateBook(c *gin.Context) {
	candidate, ok := bc.bindCandidate(c, nil)
	if !ok {
		return
	}

	if errs := validation.Validate(candidate, bc.now()); len(errs) > 0 {
		bc.renderForm(c, http.StatusBadRequest, nil, candidate, validation.Join(errs))
		return
	}

	book := candidate.Book()
	cover, ok := bc.saveUpload(c, nil, candidate)
	if !ok {
		return
	}
	book.CoverFilename = cover

	if _, err := bc.store.AddBook(c.Request.Context(), book); err != nil {
		bc.discardCover(c, cover)
		respondPageError(c, err, "add book", "Failed to add book")
		return
	}

	bc.putFlash(c, fmt.Sprintf("Added %q", book.Title))
	c.Redirect(http.StatusFound, "/")
}

// EditBookForm renders the edit form filled from the stored book.
// GET /book/:id/edit
func (bc *BooksController) EditBookForm(c *gin.Context) {
	book, ok := bc.loadBook(c, "Failed to get book for editing")
	if !ok {
		return
	}
	bc.renderForm(c, http.StatusOK, book, validation.FromBook(book), "")
}

// UpdateBook overwrites a stored book with the submitted form.
// POST /book/:id/edit
func (bc *BooksController) UpdateBook(c *gin.Context) {
	stored, ok := bc.loadBook(c, "Failed to get book")
	if !ok {
		return
	}

	candidate, ok := bc.bindCandidate(c, stored)
	if !ok {
		return
	}

	if errs := validation.Validate(candidate, bc.now()); len(errs) > 0 {
		bc.renderForm(c, http.StatusBadRequest, stored, candidate, validation.Join(errs))
		return
	}

	book := candidate.Book()
	uploaded, ok := bc.saveUpload(c, stored, candidate)
	if !ok {
		return
	}

	// A new upload wins over remove_cover; otherwise the stored cover is
	// kept unless removal was requested.
	switch {
	case uploaded != nil:
		book.CoverFilename = uploaded
	case !candidate.RemoveCover:
		book.CoverFilename = stored.CoverFilename
	}

	if err := bc.store.UpdateBook(c.Request.Context(), stored.ID, book); err != nil {
		bc.discardCover(c, uploaded)
		if errors.Is(err, books.ErrNotFound) {
			respondNotFound(c, "Book")
			return
		}
		respondPageError(c, err, "update book", "Failed to update book")
		return
	}

	if stored.HasCover() && (book.CoverFilename == nil || *book.CoverFilename != *stored.CoverFilename) {
		bc.discardCover(c, stored.CoverFilename)
	}

	bc.putFlash(c, fmt.Sprintf("Saved %q", book.Title))
	c.Redirect(http.StatusFound, fmt.Sprintf("/book/%d", stored.ID))
}

// DeleteBook removes a book and schedules removal of its cover. Deleting
// an unknown id still redirects to the list.
// POST /book/:id/delete
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseBookID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	book, err := bc.store.GetBook(ctx, id)
	if err != nil && !errors.Is(err, books.ErrNotFound) {
		respondPageError(c, err, "delete book", "Failed to delete book")
		return
	}

	if err := bc.store.DeleteBook(ctx, id); err != nil {
		respondPageError(c, err, "delete book", "Failed to delete book")
		return
	}

	if book != nil {
		bc.discardCover(c, book.CoverFilename)
		bc.putFlash(c, fmt.Sprintf("Deleted %q", book.Title))
	}
	c.Redirect(http.StatusFound, "/")
}

// loadBook parses :id and fetches the book, answering 400, 404 or 500 itself.
func (bc *BooksController) loadBook(c *gin.Context, failure string) (*entities.Book, bool) {
	id, ok := parseBookID(c)
	if !ok {
		return nil, false
	}

	book, err := bc.store.GetBook(c.Request.Context(), id)
	if errors.Is(err, books.ErrNotFound) {
		respondNotFound(c, "Book")
		return nil, false
	}
	if err != nil {
		respondPageError(c, err, "get book", failure)
		return nil, false
	}
	return book, true
}

// bindCandidate reads the posted form. The body is capped slightly above the
// cover limit so an oversize upload fails fast with 413.
func (bc *BooksController) bindCandidate(c *gin.Context, stored *entities.Book) (validation.Candidate, bool) {
	var candidate validation.Candidate
	if bc.covers != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bc.covers.MaxBytes()+formOverhead)
	}

	if err := c.ShouldBind(&candidate); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			bc.renderForm(c, http.StatusRequestEntityTooLarge, stored, candidate, covers.ErrTooLarge.Error())
			return candidate, false
		}
		bc.renderForm(c, http.StatusBadRequest, stored, candidate, "Invalid form submission")
		return candidate, false
	}
	return candidate, true
}

// saveUpload stores the cover file of the request, if any. Rejected uploads
// re-render the form with 413 or 415.
func (bc *BooksController) saveUpload(c *gin.Context, stored *entities.Book, candidate validation.Candidate) (*string, bool) {
	if bc.covers == nil {
		return nil, true
	}

	header, err := c.FormFile(coverField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) || (err == nil && isEmptyUpload(header)) {
		return nil, true
	}
	if err != nil {
		bc.renderForm(c, http.StatusBadRequest, stored, candidate, "Invalid cover upload")
		return nil, false
	}

	name, err := bc.covers.Save(header)
	switch {
	case errors.Is(err, covers.ErrTooLarge):
		bc.renderForm(c, http.StatusRequestEntityTooLarge, stored, candidate, err.Error())
		return nil, false
	case errors.Is(err, covers.ErrUnsupportedType):
		bc.renderForm(c, http.StatusUnsupportedMediaType, stored, candidate, err.Error())
		return nil, false
	case err != nil:
		respondPageError(c, err, "save cover", "Failed to save cover")
		return nil, false
	}
	return &name, true
}

// isEmptyUpload matches the part browsers send for an untouched file input.
func isEmptyUpload(header *multipart.FileHeader) bool {
	return header.Filename == "" && header.Size == 0
}

// discardCover schedules removal of a cover no book points to anymore.
// Failures are logged; the request has already succeeded.
func (bc *BooksController) discardCover(c *gin.Context, name *string) {
	if bc.remover == nil || name == nil || *name == "" {
		return
	}
	if err := bc.remover.RemoveCover(c.Request.Context(), *name); err != nil {
		log.Printf("Failed to schedule removal of cover %s: %v", *name, err)
	}
}

func (bc *BooksController) putFlash(c *gin.Context, message string) {
	if bc.flash != nil {
		bc.flash.PutFlash(c.Request.Context(), message)
	}
}

func (bc *BooksController) renderForm(c *gin.Context, status int, stored *entities.Book, form validation.Candidate, errMsg string) {
	c.HTML(status, "book-form", pageData(c, bc.flash, gin.H{
		"IsEdit":        stored != nil,
		"Book":          stored,
		"Form":          form,
		"Error":         errMsg,
		"StatusOptions": entities.BookStatuses,
		"RatingOptions": ratingOptions,
	}))
}
