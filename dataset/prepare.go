package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/lanelm/lanelm/types/errtypes"
)

// Config controls how token sequences become batches.
//
// LaneCount and BatchWidth are independent. A zero BatchWidth means one
// batch per interleaving step, i.e. BatchWidth == LaneCount, which is what a
// stateful model with a fixed batch dimension of LaneCount consumes.
type Config struct {
	SequenceLength     int     `validate:"gte=2"`
	LaneCount          int     `validate:"gte=1"`
	BatchWidth         int     `validate:"gte=0"`
	ValidationFraction float64 `validate:"gte=0,lt=1"`
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errtypes.ErrInvalidConfiguration, err)
	}
	return nil
}

// Width returns the effective batch width.
func (c Config) Width() int {
	if c.BatchWidth == 0 {
		return c.LaneCount
	}
	return c.BatchWidth
}

// Split divides an interleaved pool into training and validation parts. The
// training part is the largest whole number of lane rows not exceeding
// (1 - fraction) of the pool.
func Split(pool *Pool, fraction float64, lanes int) (train, valid *Pool, err error) {
	if lanes < 1 {
		return nil, nil, fmt.Errorf("%w: lane count %d", errtypes.ErrInvalidConfiguration, lanes)
	}
	if fraction < 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("%w: validation fraction %v", errtypes.ErrInvalidConfiguration, fraction)
	}

	n := pool.Len()
	rows := int(math.Floor((1 - fraction) * float64(n) / float64(lanes)))
	cut := min(rows*lanes, n)
	return pool.Slice(0, cut), pool.Slice(cut, n), nil
}

// Prepared holds the batch streams built from a corpus.
type Prepared struct {
	Config     Config
	Examples   int
	Dropped    int
	Train      *Stream
	Validation *Stream
}

// Prepare frames seqs, interleaves them into lanes and splits the result into
// training and validation streams.
func Prepare(ctx context.Context, cfg Config, seqs [][]int32) (*Prepared, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := FrameAll(ctx, seqs, cfg.SequenceLength)
	if err != nil {
		return nil, err
	}

	interleaved, err := Interleave(pool, cfg.LaneCount)
	if err != nil {
		return nil, err
	}

	train, valid, err := Split(interleaved, cfg.ValidationFraction, cfg.LaneCount)
	if err != nil {
		return nil, err
	}

	p := Prepared{
		Config:   cfg,
		Examples: interleaved.Len(),
		Dropped:  pool.Len() - interleaved.Len(),
	}

	if p.Train, err = NewStream(train, cfg.Width()); err != nil {
		return nil, err
	}

	if p.Validation, err = NewStream(valid, cfg.Width()); err != nil {
		return nil, err
	}

	slog.Info("prepared dataset",
		"sequences", len(seqs),
		"examples", p.Examples,
		"dropped", p.Dropped,
		"lanes", cfg.LaneCount,
		"width", cfg.Width(),
		"train_batches", p.Train.Len(),
		"validation_batches", p.Validation.Len())

	return &p, nil
}
