// Package validation checks user-submitted book forms before they reach
// storage.
//
// Validate works on the raw Candidate (strings as posted), not on a parsed
// Book, and returns every failing rule's message in declaration order:
//
//	errs := validation.Validate(candidate, time.Now())
//	if len(errs) > 0 {
//		// re-render the form with validation.Join(errs)
//	}
//	book := candidate.Book()
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Messages reported by Validate. The year message is built per call since it
// embeds the current year.
const (
	MsgTitleRequired  = "Title is required"
	MsgAuthorRequired = "Author is required"
	MsgPagesMin       = "Total pages must be at least 1"
	MsgReadPages      = "Invalid pages read value"
	MsgRating         = "Rating must be an integer between 0 and 5"
	MsgStatus         = "Status must be 'want to read', 'in progress' or 'read'"
)

// YearMessage returns the year-range message for the given current year.
func YearMessage(currentYear int) string {
	return fmt.Sprintf("Year must be between 0 and %d", currentYear)
}

var validate = validator.New()

// statusTag is the oneof tag accepting exactly entities.BookStatuses.
var statusTag = func() string {
	quoted := make([]string, 0, len(entities.BookStatuses))
	for _, s := range entities.BookStatuses {
		quoted = append(quoted, "'"+string(s)+"'")
	}
	return "oneof=" + strings.Join(quoted, " ")
}()

type rule struct {
	message string
	ok      func(c Candidate) bool
}

func rules(currentYear int) []rule {
	return []rule{
		{MsgTitleRequired, func(c Candidate) bool { return check(strings.TrimSpace(c.Title), "required") }},
		{MsgAuthorRequired, func(c Candidate) bool { return check(strings.TrimSpace(c.Author), "required") }},
		{YearMessage(currentYear), func(c Candidate) bool {
			return optionalInt(c.Year, fmt.Sprintf("gte=0,lte=%d", currentYear))
		}},
		{MsgPagesMin, func(c Candidate) bool { return optionalInt(c.Pages, "gte=1") }},
		{MsgReadPages, validReadPages},
		{MsgRating, func(c Candidate) bool { return optionalInt(c.Rating, "gte=0,lte=5") }},
		{MsgStatus, func(c Candidate) bool { return c.Status == "" || check(c.Status, statusTag) }},
	}
}

// Validate returns the messages of every rule the candidate breaks, in rule
// order. An empty result means the candidate is valid.
func Validate(c Candidate, now time.Time) []string {
	var errs []string
	for _, r := range rules(now.Year()) {
		if !r.ok(c) {
			errs = append(errs, r.message)
		}
	}
	return errs
}

// Join formats messages for display.
func Join(errs []string) string {
	return strings.Join(errs, ", ")
}

// validReadPages compares against pages as integers. When pages itself does
// not parse, only the lower bound is checked; the pages rule reports the rest.
func validReadPages(c Candidate) bool {
	raw := strings.TrimSpace(c.ReadPages)
	if raw == "" {
		return true
	}
	read, err := strconv.Atoi(raw)
	if err != nil || !check(read, "gte=0") {
		return false
	}
	if pages, err := strconv.Atoi(strings.TrimSpace(c.Pages)); err == nil {
		return check(read, fmt.Sprintf("lte=%d", pages))
	}
	return true
}

// optionalInt passes empty input; anything else must be an integer matching tag.
func optionalInt(raw, tag string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return false
	}
	return check(n, tag)
}

func check(value any, tag string) bool {
	return validate.Var(value, tag) == nil
}
