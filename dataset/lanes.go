package dataset

import (
	"fmt"
	"log/slog"

	"github.com/lanelm/lanelm/types/errtypes"
)

// LanePermutation returns the order that splits n examples into lanes
// parallel lanes of S = n/lanes steps each. Output block s holds original
// indices s, s+S, ..., s+(lanes-1)*S, so original index p lands at
// (p mod S)*lanes + p/S. Slicing the result into batches of lanes examples
// gives every lane a run of consecutive examples across batches.
func LanePermutation(n, lanes int) ([]int, error) {
	if lanes < 1 {
		return nil, fmt.Errorf("%w: lane count %d", errtypes.ErrInvalidConfiguration, lanes)
	}
	if n < 0 || n%lanes != 0 {
		return nil, fmt.Errorf("%w: %d examples do not divide into %d lanes", errtypes.ErrInvalidInput, n, lanes)
	}

	steps := n / lanes
	perm := make([]int, 0, n)
	for s := range steps {
		for p := s; p < n; p += steps {
			perm = append(perm, p)
		}
	}
	return perm, nil
}

// Invert returns the inverse of perm.
func Invert(perm []int) []int {
	inv := make([]int, len(perm))
	for i, p := range perm {
		inv[p] = i
	}
	return inv
}

// Interleave reorders pool into lanes lanes. Trailing examples that do not
// fill a whole lane row are dropped first.
func Interleave(pool *Pool, lanes int) (*Pool, error) {
	truncated, err := pool.Truncate(lanes)
	if err != nil {
		return nil, err
	}

	if dropped := pool.Len() - truncated.Len(); dropped > 0 {
		slog.Debug("dropping examples to fill lanes", "dropped", dropped, "lanes", lanes)
	}

	perm, err := LanePermutation(truncated.Len(), lanes)
	if err != nil {
		return nil, err
	}

	return truncated.Permute(perm)
}

// Deinterleave undoes Interleave for a pool whose size is a multiple of lanes.
func Deinterleave(pool *Pool, lanes int) (*Pool, error) {
	perm, err := LanePermutation(pool.Len(), lanes)
	if err != nil {
		return nil, err
	}

	return pool.Permute(Invert(perm))
}
