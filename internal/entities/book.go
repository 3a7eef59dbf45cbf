package entities

type BookStatus string

const (
	BookStatusWantToRead BookStatus = "want to read"
	BookStatusInProgress BookStatus = "in progress"
	BookStatusRead       BookStatus = "read"
)

// BookStatuses lists every status a stored book may have, in display order.
// Both the add and the edit forms render their options from this list.
var BookStatuses = []BookStatus{
	BookStatusWantToRead,
	BookStatusInProgress,
	BookStatusRead,
}

// DefaultBookStatus is applied when a candidate omits the status.
const DefaultBookStatus = BookStatusWantToRead

// IsValid reports whether s is one of BookStatuses.
func (s BookStatus) IsValid() bool {
	for _, status := range BookStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s BookStatus) String() string {
	return string(s)
}

// Book is a single tracked reading record. Nullable columns are pointers so
// that "absent" survives a round trip through the database.
type Book struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title         string     `gorm:"type:text;not null" json:"title"`
	Author        string     `gorm:"type:text;not null" json:"author"`
	Year          *int       `json:"year"`
	Pages         *int       `json:"pages"`
	ReadPages     *int       `json:"read_pages"`
	Status        BookStatus `gorm:"type:text;default:'want to read'" json:"status"`
	Rating        *int       `json:"rating"`
	Review        string     `gorm:"type:text" json:"review"`
	CoverFilename *string    `gorm:"type:text" json:"cover_filename"`
}

func (Book) TableName() string {
	return "books"
}

// HasCover reports whether an uploaded cover is attached.
func (b *Book) HasCover() bool {
	return b.CoverFilename != nil && *b.CoverFilename != ""
}

// Cover returns the cover filename or "" when none is set.
func (b *Book) Cover() string {
	if b.CoverFilename == nil {
		return ""
	}
	return *b.CoverFilename
}

// ProgressPercent returns how much of the book has been read, 0-100.
// Returns 0 when either page count is unknown.
func (b *Book) ProgressPercent() int {
	if b.Pages == nil || b.ReadPages == nil || *b.Pages <= 0 {
		return 0
	}
	pct := *b.ReadPages * 100 / *b.Pages
	if pct > 100 {
		return 100
	}
	return pct
}
