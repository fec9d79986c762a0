package dataset

import (
	"fmt"

	"github.com/lanelm/lanelm/types/errtypes"
)

// Pool is an ordered collection of examples sharing one window length.
type Pool struct {
	Pairs []Pair
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Pairs)
}

// Width is the length of each input and target row, or 0 for an empty pool.
func (p *Pool) Width() int {
	if p.Len() == 0 {
		return 0
	}
	return len(p.Pairs[0].Input)
}

// Inputs returns the input rows as an (N, L-1) matrix.
func (p *Pool) Inputs() [][]int32 {
	rows := make([][]int32, p.Len())
	for i := range rows {
		rows[i] = p.Pairs[i].Input
	}
	return rows
}

// Targets returns the target rows as an (N, L-1) matrix.
func (p *Pool) Targets() [][]int32 {
	rows := make([][]int32, p.Len())
	for i := range rows {
		rows[i] = p.Pairs[i].Target
	}
	return rows
}

// Truncate drops trailing examples so the pool size is a multiple of
// multiple. Rows are shared with p.
func (p *Pool) Truncate(multiple int) (*Pool, error) {
	if multiple < 1 {
		return nil, fmt.Errorf("%w: truncation multiple %d", errtypes.ErrInvalidConfiguration, multiple)
	}

	if p == nil {
		return &Pool{}, nil
	}

	n := p.Len() - p.Len()%multiple
	return &Pool{Pairs: p.Pairs[:n:n]}, nil
}

// Slice returns examples [from, to) as a new pool sharing rows with p.
func (p *Pool) Slice(from, to int) *Pool {
	return &Pool{Pairs: p.Pairs[from:to:to]}
}

// Permute returns a pool whose i-th example is p's perm[i]-th example.
func (p *Pool) Permute(perm []int) (*Pool, error) {
	if len(perm) != p.Len() {
		return nil, fmt.Errorf("%w: permutation of %d indices for a pool of %d", errtypes.ErrInvalidInput, len(perm), p.Len())
	}

	pairs := make([]Pair, len(perm))
	for i, src := range perm {
		if src < 0 || src >= len(perm) {
			return nil, fmt.Errorf("%w: permutation index %d out of range", errtypes.ErrInvalidInput, src)
		}
		pairs[i] = p.Pairs[src]
	}
	return &Pool{Pairs: pairs}, nil
}
