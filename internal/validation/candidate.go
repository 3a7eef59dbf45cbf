package validation

import (
	"strconv"
	"strings"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Candidate is a book form as submitted, before validation. Every field is
// kept as the raw string so that the form can be re-rendered verbatim.
type Candidate struct {
	Title     string `form:"title"`
	Author    string `form:"author"`
	Pages     string `form:"pages"`
	ReadPages string `form:"read_pages"`
	Year      string `form:"year"`
	Status    string `form:"status"`
	Rating    string `form:"rating"`
	Review    string `form:"review"`

	// RemoveCover asks the edit handler to clear the stored cover.
	RemoveCover bool `form:"remove_cover"`
}

// FromBook fills a candidate from a stored book, for the edit form.
func FromBook(b *entities.Book) Candidate {
	return Candidate{
		Title:     b.Title,
		Author:    b.Author,
		Pages:     formatInt(b.Pages),
		ReadPages: formatInt(b.ReadPages),
		Year:      formatInt(b.Year),
		Status:    string(b.Status),
		Rating:    formatInt(b.Rating),
		Review:    b.Review,
	}
}

// Book converts a candidate that passed Validate into an entity. Empty
// numeric fields become nil and a missing status becomes the default.
// The cover is left unset; it belongs to the upload step.
func (c Candidate) Book() *entities.Book {
	status := entities.BookStatus(c.Status)
	if status == "" {
		status = entities.DefaultBookStatus
	}
	return &entities.Book{
		Title:     strings.TrimSpace(c.Title),
		Author:    strings.TrimSpace(c.Author),
		Pages:     parseOptionalInt(c.Pages),
		ReadPages: parseOptionalInt(c.ReadPages),
		Year:      parseOptionalInt(c.Year),
		Status:    status,
		Rating:    parseOptionalInt(c.Rating),
		Review:    c.Review,
	}
}

func parseOptionalInt(raw string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &n
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
