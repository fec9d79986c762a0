package dataset

import (
	"fmt"
	"iter"

	"github.com/lanelm/lanelm/types/errtypes"
)

// Batch is a group of consecutive examples from a pool.
type Batch struct {
	Pairs []Pair
}

// Inputs returns the batch inputs as a (W, L-1) matrix.
func (b Batch) Inputs() [][]int32 {
	return (&Pool{Pairs: b.Pairs}).Inputs()
}

// Targets returns the batch targets as a (W, L-1) matrix.
func (b Batch) Targets() [][]int32 {
	return (&Pool{Pairs: b.Pairs}).Targets()
}

// Stream slices a pool into fixed width batches. A final partial batch is
// dropped. Streams hold no iteration state and can be ranged over any
// number of times.
type Stream struct {
	pool  *Pool
	width int
}

func NewStream(pool *Pool, width int) (*Stream, error) {
	if width < 1 {
		return nil, fmt.Errorf("%w: batch width %d", errtypes.ErrInvalidConfiguration, width)
	}

	if pool == nil {
		pool = &Pool{}
	}

	return &Stream{pool: pool, width: width}, nil
}

// Len is the number of full batches.
func (s *Stream) Len() int {
	return s.pool.Len() / s.width
}

func (s *Stream) Width() int {
	return s.width
}

// Dropped is the number of trailing examples that do not fill a batch.
func (s *Stream) Dropped() int {
	return s.pool.Len() % s.width
}

// All yields each batch with its index in order.
func (s *Stream) All() iter.Seq2[int, Batch] {
	return func(yield func(int, Batch) bool) {
		for i := range s.Len() {
			lo := i * s.width
			hi := lo + s.width
			if !yield(i, Batch{Pairs: s.pool.Pairs[lo:hi:hi]}) {
				return
			}
		}
	}
}
