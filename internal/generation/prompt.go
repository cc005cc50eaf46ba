package generation

import (
	"fmt"
	"strings"

	"github.com/bull/bookshelf-mcp-server/internal/storage"
)

// buildPrompt assembles the recommendation prompt: task instructions, the
// grounding contract (recommend only from context, no fabrication), the
// output schema, and the retrieved documents in retrieval order.
func buildPrompt(subject string, docs []*storage.ScoredBook) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a book recommendation engine. Recommend books based on the following subject: %s.

Only recommend books that appear in the context documents below. Do not invent
or suggest any book that is not present in the context. Return up to five
recommendations.

The response must be a JSON object with this exact structure:
{"recommendations": [{"title": "Book Title", "author": "Author Name", "description": "Brief description of the book.", "isbn": "ISBN", "id": "the id from the matching context document"}]}

Every recommendation must include exactly the fields title, author,
description, isbn and id, where id is copied from the matching context
document. If none of the context documents are relevant to the subject,
return {"recommendations": []}.
Make sure to follow the JSON format strictly, not markdown. Avoid any
additional commentary or information.

Context documents:
`, subject)

	for _, doc := range docs {
		fmt.Fprintf(&b, "\n[id: %s] %s\n", doc.Book.ID, doc.CanonicalText)
	}

	return b.String()
}
