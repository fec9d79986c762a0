package sample

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanelm/lanelm/types/errtypes"
)

var negInf = float32(math.Inf(-1))

func TestWeighted(t *testing.T) {
	got, err := Weighted(nil).Sample([]float32{negInf, 2, negInf, negInf})
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	_, err = Weighted(nil).Sample([]float32{negInf, negInf, negInf})
	assert.ErrorIs(t, err, ErrNoValidLogits)

	_, err = Weighted(nil).Sample(nil)
	assert.ErrorIs(t, err, errtypes.ErrInvalidInput)

	_, err = Weighted(nil).Sample([]float32{1, float32(math.NaN())})
	assert.ErrorIs(t, err, errtypes.ErrInvalidInput)
}

func TestWeightedLargeLogits(t *testing.T) {
	// exp(1e4) overflows without the max shift
	got, err := Weighted(nil).Sample([]float32{1e4, -1e4})
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestWeightedPositiveInf(t *testing.T) {
	for range 100 {
		got, err := Weighted(nil).Sample([]float32{5, float32(math.Inf(1)), 7})
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	}
}

func TestWeightedSeeded(t *testing.T) {
	seed := uint64(42)
	a, b := Weighted(&seed), Weighted(&seed)
	logits := []float32{1, 2, 3, 4}
	for range 50 {
		x, err := a.Sample(logits)
		require.NoError(t, err)
		y, err := b.Sample(logits)
		require.NoError(t, err)
		assert.Equal(t, x, y)
	}
}

func drawCounts(t *testing.T, s Sampler, logits []float32, n int) map[int]int {
	t.Helper()
	counts := make(map[int]int)
	for range n {
		idx, err := s.Sample(logits)
		require.NoError(t, err)
		counts[idx]++
	}
	return counts
}

func TestWeightedTwoSupport(t *testing.T) {
	const draws = 10000
	seed := uint64(7)

	t.Run("equal", func(t *testing.T) {
		logits := []float32{negInf, negInf, 0, negInf, negInf, 0, negInf}
		counts := drawCounts(t, Weighted(&seed), logits, draws)
		assert.Len(t, counts, 2)
		assert.Equal(t, draws, counts[2]+counts[5])
		assert.InDelta(t, 0.5, float64(counts[2])/draws, 0.03)
	})

	t.Run("unequal", func(t *testing.T) {
		logits := []float32{negInf, float32(math.Log(3)), negInf, 0}
		counts := drawCounts(t, Weighted(&seed), logits, draws)
		assert.Len(t, counts, 2)
		assert.Equal(t, draws, counts[1]+counts[3])
		ratio := float64(counts[1]) / float64(counts[3])
		assert.InEpsilon(t, 3.0, ratio, 0.1)
	})
}

func TestGreedy(t *testing.T) {
	got, err := Greedy().Sample([]float32{1, 5, 5, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	_, err = Greedy().Sample([]float32{negInf, negInf})
	assert.ErrorIs(t, err, ErrNoValidLogits)
}

type testTransform struct {
	id        int
	callOrder *[]int
}

func (ts *testTransform) Apply(logits []float64) ([]float64, error) {
	if ts.callOrder != nil {
		*ts.callOrder = append(*ts.callOrder, ts.id)
	}
	return logits, nil
}

func TestTransformOrder(t *testing.T) {
	var callOrder []int
	mock1 := &testTransform{id: 1, callOrder: &callOrder}
	mock2 := &testTransform{id: 2, callOrder: &callOrder}
	mock3 := &testTransform{id: 3, callOrder: &callOrder}

	_, err := Weighted(nil).Sample([]float32{1, 2, 3, 4}, mock1, mock2, mock3)
	require.NoError(t, err)
	if diff := cmp.Diff([]int{1, 2, 3}, callOrder); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "greedy"},
		{name: "temperature", opts: Options{Temperature: 0.5}},
		{name: "plain weighted", opts: Options{Temperature: 1}},
		{name: "negative temperature", opts: Options{Temperature: -1}, wantErr: true},
		{name: "temperature too high", opts: Options{Temperature: 2.1}, wantErr: true},
		{name: "top k", opts: Options{Temperature: 0.8, TopK: 10}},
		{name: "negative top k", opts: Options{Temperature: 0.8, TopK: -1}, wantErr: true},
		{name: "top p", opts: Options{Temperature: 0.8, TopP: 0.9}},
		{name: "top p one", opts: Options{Temperature: 0.8, TopP: 1}, wantErr: true},
		{name: "min p", opts: Options{Temperature: 0.8, MinP: 0.2}},
		{name: "min p negative", opts: Options{Temperature: 0.8, MinP: -0.1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.opts)
			if tt.wantErr {
				assert.ErrorIs(t, err, errtypes.ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
			idx, err := s.Sample([]float32{0.1, 3, 0.2, 0.3})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, 4)
		})
	}
}

func TestNewTopKOne(t *testing.T) {
	s, err := New(Options{Temperature: 1.5, TopK: 1})
	require.NoError(t, err)
	for range 50 {
		idx, err := s.Sample([]float32{0.1, 0.2, 0.4, 0.3})
		require.NoError(t, err)
		assert.Equal(t, 2, idx)
	}
}
