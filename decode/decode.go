// Package decode drives a recurrent model one step at a time, carrying its
// state explicitly between calls, to generate token sequences.
package decode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/lanelm/lanelm/logutil"
	"github.com/lanelm/lanelm/sample"
	"github.com/lanelm/lanelm/types/errtypes"
)

var ErrNotGenerating = errors.New("decode: session is not generating")

// Model is a recurrent sequence model treated as a pure function of its
// input tokens and state.
type Model interface {
	// StateShape is the shape of every state accepted and returned by Infer.
	StateShape() []int

	// VocabularySize is the length of every logits vector returned by Infer.
	VocabularySize() int

	// Infer runs tokens through the model starting from state and returns the
	// logits for the last token together with the state after it. It must
	// not modify state.
	Infer(tokens []int32, state State) ([]float32, State, error)
}

type Phase int

const (
	AwaitingSeed Phase = iota
	Generating
	Done
)

func (p Phase) String() string {
	switch p {
	case AwaitingSeed:
		return "awaiting seed"
	case Generating:
		return "generating"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Session is one generation run. It owns its state exclusively and must not
// be used from more than one goroutine; concurrent generations each use
// their own Session.
type Session struct {
	ID string

	model   Model
	sampler sample.Sampler
	logger  *slog.Logger

	phase Phase
	state State
	steps int
}

type Option func(*options)

type options struct {
	id      string
	logger  *slog.Logger
	initial *State
	onToken func(int32) error
}

// WithLogger sets the logger used by the session. The default logger is used
// otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSessionID names the session instead of using a random id.
func WithSessionID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithInitialState makes Generate start from s instead of the zero state.
func WithInitialState(s State) Option {
	return func(o *options) {
		c := s.Clone()
		o.initial = &c
	}
}

// WithTokenCallback makes Generate call fn with each sampled token as soon
// as it is drawn. An error from fn stops generation.
func WithTokenCallback(fn func(int32) error) Option {
	return func(o *options) { o.onToken = fn }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

func NewSession(m Model, s sample.Sampler, opts ...Option) *Session {
	o := collect(opts)
	id := o.id
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:      id,
		model:   m,
		sampler: s,
		logger:  o.logger.With("session", id),
	}
}

func (s *Session) Phase() Phase {
	return s.phase
}

// State returns a copy of the held state.
func (s *Session) State() State {
	return s.state.Clone()
}

// Begin starts the session over seed. The state is reset to zero, or set to
// initial when it is not nil, and the whole seed is run through the model.
// It returns the logits for the last seed token.
func (s *Session) Begin(seed []int32, initial *State) ([]float32, error) {
	if len(seed) == 0 {
		return nil, errtypes.ErrEmptySeed
	}

	shape := s.model.StateShape()
	state := ZeroState(shape)
	if initial != nil {
		if err := initial.CheckShape("initial state", shape); err != nil {
			return nil, err
		}
		state = initial.Clone()
	}

	logits, err := s.infer(seed, state)
	if err != nil {
		return nil, err
	}

	s.phase = Generating
	s.steps = 0
	s.logger.Debug("session started", "seed", len(seed), "initial_state", initial != nil)
	return logits, nil
}

// Step runs the single token prev through the model with the held state and
// replaces the state with the one returned.
func (s *Session) Step(prev int32) ([]float32, error) {
	if s.phase != Generating {
		return nil, fmt.Errorf("%w: %s", ErrNotGenerating, s.phase)
	}

	logits, err := s.infer([]int32{prev}, s.state)
	if err != nil {
		return nil, err
	}

	s.steps++
	logutil.Trace("decode step", "session", s.ID, "step", s.steps, "token", prev)
	return logits, nil
}

// Sample draws a token id from logits.
func (s *Session) Sample(logits []float32) (int32, error) {
	idx, err := s.sampler.Sample(logits)
	if err != nil {
		return -1, err
	}
	return int32(idx), nil
}

// Finish ends the session. Step fails afterwards until Begin is called again.
func (s *Session) Finish() {
	if s.phase != Done {
		s.logger.Debug("session finished", "steps", s.steps)
	}
	s.phase = Done
}

// infer calls the model and adopts the returned state once both outputs
// have the expected shape.
func (s *Session) infer(tokens []int32, state State) ([]float32, error) {
	logits, next, err := s.model.Infer(tokens, state)
	if err != nil {
		return nil, fmt.Errorf("decode: infer: %w", err)
	}

	if vocab := s.model.VocabularySize(); len(logits) != vocab {
		return nil, &errtypes.ShapeError{What: "logits", Want: []int{vocab}, Got: []int{len(logits)}}
	}

	if err := next.CheckShape("returned state", s.model.StateShape()); err != nil {
		return nil, err
	}

	s.state = next
	return logits, nil
}

// Generate seeds a new session with seed and samples numSteps tokens,
// feeding each one back into the model. It returns seed followed by the
// sampled tokens.
func Generate(ctx context.Context, m Model, sampler sample.Sampler, seed []int32, numSteps int, opts ...Option) ([]int32, error) {
	if len(seed) == 0 {
		return nil, errtypes.ErrEmptySeed
	}
	if numSteps < 0 {
		return nil, fmt.Errorf("%w: negative step count %d", errtypes.ErrInvalidInput, numSteps)
	}

	out := slices.Grow(slices.Clone(seed), numSteps)
	if numSteps == 0 {
		return out, nil
	}

	o := collect(opts)
	sess := NewSession(m, sampler, opts...)
	defer sess.Finish()

	logits, err := sess.Begin(seed, o.initial)
	if err != nil {
		return nil, err
	}

	for i := range numSteps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tok, err := sess.Sample(logits)
		if err != nil {
			return nil, err
		}

		out = append(out, tok)
		if o.onToken != nil {
			if err := o.onToken(tok); err != nil {
				return nil, err
			}
		}

		if i == numSteps-1 {
			break
		}

		if logits, err = sess.Step(tok); err != nil {
			return nil, err
		}
	}

	return out, nil
}
