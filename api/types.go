package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// StatusError is an error response from the server.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		return fmt.Sprintf("%d %s", e.StatusCode, strings.ToLower(http.StatusText(e.StatusCode)))
	}
}

// Options override the server's sampling configuration for one request.
type Options struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	MinP        *float32 `json:"min_p,omitempty"`
	RandomSeed  *uint64  `json:"seed,omitempty"`
}

type GenerateRequest struct {
	// Seed is the text the generation starts from.
	Seed string `json:"seed"`

	// Steps is the number of characters to generate.
	Steps int `json:"steps"`

	// Stream sends one response per generated character when true.
	Stream *bool `json:"stream,omitempty"`

	Options *Options `json:"options,omitempty"`
}

type GenerateResponse struct {
	SessionID string `json:"session_id"`

	// Response is the generated character when streaming, otherwise the
	// seed followed by the generated text.
	Response string `json:"response"`

	// Seed is the seed text the model was started from, with characters
	// outside the vocabulary removed. It is set on the first and final
	// responses.
	Seed string `json:"seed,omitempty"`

	Done bool `json:"done"`

	// Tokens holds the full token sequence on the final response.
	Tokens []int32 `json:"tokens,omitempty"`

	TotalDuration time.Duration `json:"total_duration,omitempty"`
}

type PrepareRequest struct {
	Text      string  `json:"text"`
	Separator *string `json:"separator,omitempty"`
}

type PrepareResponse struct {
	Sequences         int `json:"sequences"`
	VocabularySize    int `json:"vocabulary_size"`
	SequenceLength    int `json:"sequence_length"`
	LaneCount         int `json:"lane_count"`
	BatchWidth        int `json:"batch_width"`
	Examples          int `json:"examples"`
	Dropped           int `json:"dropped"`
	TrainBatches      int `json:"train_batches"`
	ValidationBatches int `json:"validation_batches"`
}

type VersionResponse struct {
	Version string `json:"version"`
}
