package decode

import (
	"slices"

	"github.com/lanelm/lanelm/types/errtypes"
)

// State is a model's recurrent memory after some prefix of tokens. Data is
// stored row major in Shape.
type State struct {
	Shape []int
	Data  []float32
}

// ZeroState returns the all zero state of the given shape.
func ZeroState(shape []int) State {
	return State{
		Shape: slices.Clone(shape),
		Data:  make([]float32, elements(shape)),
	}
}

func elements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func (s State) Clone() State {
	return State{Shape: slices.Clone(s.Shape), Data: slices.Clone(s.Data)}
}

func (s State) Equal(o State) bool {
	return slices.Equal(s.Shape, o.Shape) && slices.Equal(s.Data, o.Data)
}

// CheckShape reports a *errtypes.ShapeError if s does not have shape want
// or its data does not fill that shape.
func (s State) CheckShape(what string, want []int) error {
	if !slices.Equal(s.Shape, want) || len(s.Data) != elements(want) {
		return &errtypes.ShapeError{What: what, Want: slices.Clone(want), Got: slices.Clone(s.Shape)}
	}
	return nil
}
