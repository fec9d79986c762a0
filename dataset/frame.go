// Package dataset shapes token sequences into fixed-length example pools
// ordered for stateful recurrent training.
package dataset

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lanelm/lanelm/types/errtypes"
)

// Pad is the token id used for padding. Tokenizers never emit it.
const Pad int32 = 0

// Pair is one training example: Target is Input shifted left by one position.
type Pair struct {
	Input  []int32
	Target []int32
}

// Frame returns seq normalized to exactly length tokens. Longer sequences
// keep their last length tokens; shorter ones are left padded with Pad.
func Frame(seq []int32, length int) ([]int32, error) {
	if length < 2 {
		return nil, fmt.Errorf("%w: sequence length %d, need at least 2", errtypes.ErrInvalidInput, length)
	}

	for i, id := range seq {
		if id < 0 {
			return nil, fmt.Errorf("%w: negative token %d at position %d", errtypes.ErrInvalidInput, id, i)
		}
	}

	framed := make([]int32, length)
	if len(seq) >= length {
		copy(framed, seq[len(seq)-length:])
	} else {
		copy(framed[length-len(seq):], seq)
	}

	return framed, nil
}

// Shift splits a framed sequence into its input (all but the last token)
// and target (all but the first token).
func Shift(framed []int32) (Pair, error) {
	if len(framed) < 2 {
		return Pair{}, fmt.Errorf("%w: cannot shift a sequence of length %d", errtypes.ErrInvalidInput, len(framed))
	}

	n := len(framed) - 1
	p := Pair{
		Input:  make([]int32, n),
		Target: make([]int32, n),
	}
	copy(p.Input, framed[:n])
	copy(p.Target, framed[1:])
	return p, nil
}

// FrameAll frames and shifts every sequence. Sequences are independent, so
// they are processed in parallel; the pool keeps the input order.
func FrameAll(ctx context.Context, seqs [][]int32, length int) (*Pool, error) {
	if length < 2 {
		return nil, fmt.Errorf("%w: sequence length %d, need at least 2", errtypes.ErrInvalidInput, length)
	}

	pairs := make([]Pair, len(seqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, seq := range seqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			framed, err := Frame(seq, length)
			if err != nil {
				return fmt.Errorf("sequence %d: %w", i, err)
			}

			pairs[i], err = Shift(framed)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Pool{Pairs: pairs}, nil
}
