package corpus

import (
	"strings"
	"testing"
)

// TestCanonicalText_AllFields verifies the full sentence template.
func TestCanonicalText_AllFields(t *testing.T) {
	book := Book{
		ID:              "b1",
		Title:           "Dune",
		Authors:         []string{"Frank Herbert"},
		LongDescription: "A desert planet saga.",
		Categories:      []string{"Science Fiction", "Classics"},
		PublishedDate:   "1965-08-01",
		PageCount:       412,
		ThumbnailURL:    "https://example.com/dune.jpg",
	}

	text := book.CanonicalText()

	for _, want := range []string{
		"The title of the book is Dune.",
		"The author(s) is/are Frank Herbert.",
		"The description is A desert planet saga.",
		"The books category(s) is/are Science Fiction,Classics.",
		"The book was published on 1965-08-01.",
		"The book has 412 pages.",
		"The books thumbnail url is https://example.com/dune.jpg.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("canonical text missing %q\ngot: %s", want, text)
		}
	}
}

// TestCanonicalText_MissingPageCount verifies the placeholder substitution.
func TestCanonicalText_MissingPageCount(t *testing.T) {
	book := Book{Title: "Untracked", LongDescription: "No page count recorded."}

	text := book.CanonicalText()

	if !strings.Contains(text, "The book has unknown number of pages.") {
		t.Errorf("expected unknown page count placeholder, got: %s", text)
	}
}

// TestCanonicalText_CollapsesNewlines verifies embedding-model normalization.
func TestCanonicalText_CollapsesNewlines(t *testing.T) {
	book := Book{
		Title:           "Multi\nLine",
		LongDescription: "First paragraph.\n\nSecond   paragraph.\r\nThird.",
	}

	text := book.CanonicalText()

	if strings.ContainsAny(text, "\n\r") {
		t.Errorf("canonical text contains newlines: %q", text)
	}
	if strings.Contains(text, "  ") {
		t.Errorf("canonical text contains runs of spaces: %q", text)
	}
	if !strings.Contains(text, "First paragraph. Second paragraph. Third.") {
		t.Errorf("collapsed text malformed: %q", text)
	}
}

// TestCanonicalText_Deterministic verifies identical records produce
// identical text.
func TestCanonicalText_Deterministic(t *testing.T) {
	book := Book{Title: "Same", Authors: []string{"A", "B"}, LongDescription: "Stable."}

	if book.CanonicalText() != book.CanonicalText() {
		t.Error("canonical text is not deterministic")
	}
}

func TestAuthor_JoinsOrdered(t *testing.T) {
	book := Book{Authors: []string{"Ann Leckie", "James S. A. Corey"}}

	if got := book.Author(); got != "Ann Leckie, James S. A. Corey" {
		t.Errorf("Author() = %q", got)
	}
}
