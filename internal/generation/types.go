// Package generation wraps the LLM used to turn grounding documents into
// book recommendations, in one-shot and streaming form.
package generation

// Recommendation is a single model-produced recommendation. After
// reconciliation, author/isbn/thumbnailUrl/publishedDate carry the
// authoritative corpus metadata rather than the model's values.
type Recommendation struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Description   string `json:"description"`
	ISBN          string `json:"isbn"`
	ThumbnailURL  string `json:"thumbnailUrl,omitempty"`
	PublishedDate string `json:"publishedDate,omitempty"`
}

// StreamEvent is one item of a generation stream. Non-terminal events carry
// a UTF-8 text increment in Delta. The terminal event has Done set and
// carries either the full accumulated text or the error that ended the
// stream. The channel is closed after the terminal event; streams are finite
// and not restartable.
type StreamEvent struct {
	Delta string
	Text  string
	Err   error
	Done  bool
}
