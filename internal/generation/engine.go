package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/bull/bookshelf-mcp-server/internal/storage"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = openai.ChatModelGPT4o

// streamBufferSize bounds the event channel so a slow consumer applies
// backpressure to the producer instead of growing memory unbounded.
const streamBufferSize = 16

// Engine produces recommendations with an OpenAI chat model, constrained to
// the supplied grounding documents.
type Engine struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewEngine creates an engine on the given client. model may be empty to use
// DefaultModel.
func NewEngine(client *openai.Client, model string) *Engine {
	m := DefaultModel
	if model != "" {
		m = openai.ChatModel(model)
	}
	return &Engine{client: client, model: m}
}

func (e *Engine) params(subject string, docs []*storage.ScoredBook) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(buildPrompt(subject, docs)),
		},
		Model: e.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	}
}

// Recommend runs a one-shot structured completion and validates the model's
// raw text against the recommendation schema.
func (e *Engine) Recommend(ctx context.Context, subject string, docs []*storage.ScoredBook) ([]Recommendation, error) {
	resp, err := e.client.Chat.Completions.New(ctx, e.params(subject, docs))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion returned no choices", ErrProvider)
	}

	return parseRecommendations(resp.Choices[0].Message.Content)
}

// RecommendStream runs a streamed completion. Text increments arrive as they
// are produced; the terminal event carries the full accumulated text. A
// cancelled consumer context stops forwarding, though the underlying
// generation is not guaranteed to abort.
func (e *Engine) RecommendStream(ctx context.Context, subject string, docs []*storage.ScoredBook) <-chan StreamEvent {
	events := make(chan StreamEvent, streamBufferSize)

	go func() {
		defer close(events)

		stream := e.client.Chat.Completions.NewStreaming(ctx, e.params(subject, docs))
		defer stream.Close()

		acc := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case events <- StreamEvent{Delta: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				sendFinal(ctx, events, StreamEvent{Done: true, Err: ctx.Err()})
				return
			}
		}

		if err := stream.Err(); err != nil {
			sendFinal(ctx, events, StreamEvent{Done: true, Err: fmt.Errorf("%w: %v", ErrProvider, err)})
			return
		}

		var text string
		if len(acc.Choices) > 0 {
			text = acc.Choices[0].Message.Content
		}
		sendFinal(ctx, events, StreamEvent{Done: true, Text: text})
	}()

	return events
}

// sendFinal delivers the terminal event, giving up only when the consumer's
// context ends and its buffer is full: a gone consumer never blocks the
// producer goroutine forever.
func sendFinal(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) {
	select {
	case events <- ev:
	case <-ctx.Done():
		select {
		case events <- ev:
		default:
		}
	}
}

// parseRecommendations validates the raw model output against the
// recommendation schema. The model is instructed to respond with a
// {"recommendations": [...]} object; a bare array is tolerated since models
// occasionally ignore the envelope. Anything else is ErrInvalidFormat.
func parseRecommendations(raw string) ([]Recommendation, error) {
	trimmed := strings.TrimSpace(raw)

	var recs []Recommendation
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &recs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	} else {
		var envelope struct {
			Recommendations []Recommendation `json:"recommendations"`
		}
		if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		recs = envelope.Recommendations
	}

	for i, rec := range recs {
		if err := validateRecommendation(rec); err != nil {
			return nil, fmt.Errorf("%w: recommendation %d: %v", ErrInvalidFormat, i, err)
		}
	}

	if recs == nil {
		recs = []Recommendation{}
	}
	return recs, nil
}

// validateRecommendation enforces the required fields of the output schema:
// title, author, description, isbn and id. thumbnailUrl and publishedDate
// are optional.
func validateRecommendation(rec Recommendation) error {
	switch {
	case rec.ID == "":
		return fmt.Errorf("missing id")
	case rec.Title == "":
		return fmt.Errorf("missing title")
	case rec.Author == "":
		return fmt.Errorf("missing author")
	case rec.Description == "":
		return fmt.Errorf("missing description")
	case rec.ISBN == "":
		return fmt.Errorf("missing isbn")
	}
	return nil
}
