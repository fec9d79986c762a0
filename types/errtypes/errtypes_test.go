package errtypes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShapeError(t *testing.T) {
	err := fmt.Errorf("begin: %w", &ShapeError{What: "initial state", Want: []int{1, 4}, Got: []int{1, 3}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "begin: shape mismatch: initial state: want [1 4], got [1 3]", err.Error())

	var se *ShapeError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, []int{1, 3}, se.Got)
}

func TestIsUserError(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"input":         {fmt.Errorf("x: %w", ErrInvalidInput), true},
		"configuration": {ErrInvalidConfiguration, true},
		"shape":         {&ShapeError{What: "logits"}, true},
		"seed":          {ErrEmptySeed, true},
		"other":         {errors.New("boom"), false},
		"nil":           {nil, false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUserError(tc.err))
		})
	}
}
