package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanelm/lanelm/types/errtypes"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{SequenceLength: 500, LaneCount: 32, ValidationFraction: 0.2}, false},
		{"explicit width", Config{SequenceLength: 2, LaneCount: 1, BatchWidth: 16}, false},
		{"short sequence", Config{SequenceLength: 1, LaneCount: 1}, true},
		{"zero lanes", Config{SequenceLength: 10, LaneCount: 0}, true},
		{"negative width", Config{SequenceLength: 10, LaneCount: 2, BatchWidth: -1}, true},
		{"fraction one", Config{SequenceLength: 10, LaneCount: 2, ValidationFraction: 1}, true},
		{"negative fraction", Config{SequenceLength: 10, LaneCount: 2, ValidationFraction: -0.1}, true},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, errtypes.ErrInvalidConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigWidth(t *testing.T) {
	assert.Equal(t, 8, Config{LaneCount: 8}.Width())
	assert.Equal(t, 3, Config{LaneCount: 8, BatchWidth: 3}.Width())
}

func TestSplit(t *testing.T) {
	train, valid, err := Split(numbered(64), 0.2, 8)
	require.NoError(t, err)
	assert.Equal(t, 48, train.Len())
	assert.Equal(t, 16, valid.Len())
	assert.Equal(t, 48, ids(valid)[0])

	train, valid, err = Split(numbered(64), 0, 8)
	require.NoError(t, err)
	assert.Equal(t, 64, train.Len())
	assert.Equal(t, 0, valid.Len())

	_, _, err = Split(numbered(64), 1.5, 8)
	assert.ErrorIs(t, err, errtypes.ErrInvalidConfiguration)
	_, _, err = Split(numbered(64), 0.2, 0)
	assert.ErrorIs(t, err, errtypes.ErrInvalidConfiguration)
}

func TestPrepare(t *testing.T) {
	seqs := make([][]int32, 70)
	for i := range seqs {
		seqs[i] = []int32{int32(i + 1), int32(i + 2), int32(i + 3), int32(i + 4)}
	}

	p, err := Prepare(context.Background(), Config{SequenceLength: 4, LaneCount: 8, ValidationFraction: 0.2}, seqs)
	require.NoError(t, err)

	assert.Equal(t, 64, p.Examples)
	assert.Equal(t, 6, p.Dropped)
	assert.Equal(t, 6, p.Train.Len())
	assert.Equal(t, 2, p.Validation.Len())
	assert.Equal(t, 8, p.Train.Width())

	for _, b := range p.Train.All() {
		for _, row := range b.Inputs() {
			assert.Len(t, row, 3)
		}
		for _, row := range b.Targets() {
			assert.Len(t, row, 3)
		}
	}

	_, err = Prepare(context.Background(), Config{SequenceLength: 4, LaneCount: 0}, seqs)
	assert.ErrorIs(t, err, errtypes.ErrInvalidConfiguration)
}
