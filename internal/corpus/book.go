// Package corpus defines the book record model and the sources it is loaded from.
package corpus

import (
	"fmt"
	"strconv"
	"strings"
)

// Book is a single corpus record. Records are produced by external data
// ingestion and treated as immutable once indexed.
type Book struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Description     string   `json:"description"`
	LongDescription string   `json:"longDescription"`
	Categories      []string `json:"categories"`
	ISBN            string   `json:"isbn"`
	PublishedDate   string   `json:"publishedDate,omitempty"`
	PageCount       int      `json:"pageCount,omitempty"`
	ThumbnailURL    string   `json:"thumbnailUrl,omitempty"`
}

// CanonicalText derives the single text blob that gets embedded for a book.
// The derivation is deterministic: same record, same text. Newlines and runs
// of whitespace are collapsed to single spaces for embedding-model
// compatibility.
func (b Book) CanonicalText() string {
	pages := "unknown number of"
	if b.PageCount > 0 {
		pages = strconv.Itoa(b.PageCount)
	}

	text := fmt.Sprintf(
		"The title of the book is %s. The author(s) is/are %s. The description is %s. "+
			"The books category(s) is/are %s. The book was published on %s. "+
			"The book has %s pages. The books thumbnail url is %s.",
		b.Title,
		strings.Join(b.Authors, ", "),
		b.LongDescription,
		strings.Join(b.Categories, ","),
		b.PublishedDate,
		pages,
		b.ThumbnailURL,
	)

	return strings.Join(strings.Fields(text), " ")
}

// Author joins the ordered authors list into the single display string used
// on reconciled recommendations.
func (b Book) Author() string {
	return strings.Join(b.Authors, ", ")
}
