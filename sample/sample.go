// Package sample draws token ids from model logits.
package sample

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/lanelm/lanelm/types/errtypes"
)

var ErrNoValidLogits = errors.New("sample: no valid logits")

type Transform interface {
	Apply([]float64) ([]float64, error)
}

type Sampler interface {
	Sample([]float32, ...Transform) (int, error)
}

// softmax normalizes logits into probabilities. The max logit is subtracted
// first so large scores do not overflow.
func softmax(logits []float64) []float64 {
	probs := make([]float64, len(logits))
	if len(logits) == 0 {
		return probs
	}

	maxLogit := floats.Max(logits)
	for i, v := range logits {
		probs[i] = math.Exp(v - maxLogit)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs
}

func toFloat64(logits []float32, transforms []Transform) ([]float64, error) {
	if len(logits) == 0 {
		return nil, fmt.Errorf("sample: %w: empty logits", errtypes.ErrInvalidInput)
	}

	logits64 := make([]float64, len(logits))
	for i, v := range logits {
		if math.IsNaN(float64(v)) {
			return nil, fmt.Errorf("sample: %w: NaN logit at index %d", errtypes.ErrInvalidInput, i)
		}
		logits64[i] = float64(v)
	}

	var err error
	for _, t := range transforms {
		logits64, err = t.Apply(logits64)
		if err != nil {
			return nil, err
		}
	}
	return logits64, nil
}

type weighted struct {
	src rand.Source
}

// Weighted samples from the categorical distribution whose unnormalized
// weights are exp(logit). Entries at -Inf are never drawn. A nil seed uses
// the global source.
func Weighted(seed *uint64) Sampler {
	var src rand.Source
	if seed != nil {
		src = rand.NewSource(*seed)
	}
	return weighted{src: src}
}

func (s weighted) Sample(logits []float32, transforms ...Transform) (int, error) {
	logits64, err := toFloat64(logits, transforms)
	if err != nil {
		return -1, err
	}

	support := make([]float64, 0, len(logits64))
	indices := make([]int, 0, len(logits64))
	for i, logit := range logits64 {
		if !math.IsInf(logit, -1) {
			support = append(support, logit)
			indices = append(indices, i)
		}
	}

	if len(support) == 0 {
		return -1, ErrNoValidLogits
	}

	// +Inf scores absorb all of the mass
	if math.IsInf(floats.Max(support), 1) {
		for i, logit := range support {
			if math.IsInf(logit, 1) {
				support[i] = 0
			} else {
				support[i] = math.Inf(-1)
			}
		}
	}

	w := sampleuv.NewWeighted(softmax(support), s.src)
	if idx, ok := w.Take(); ok {
		return indices[idx], nil
	}
	return -1, ErrNoValidLogits
}

type greedy struct{}

// Greedy always returns the index of the largest logit, the first one on ties.
func Greedy() Sampler {
	return greedy{}
}

func (greedy) Sample(logits []float32, transforms ...Transform) (int, error) {
	logits64, err := toFloat64(logits, transforms)
	if err != nil {
		return -1, err
	}

	idx := floats.MaxIdx(logits64)
	if math.IsInf(logits64[idx], -1) {
		return -1, ErrNoValidLogits
	}
	return idx, nil
}

// Options configure a sampler. A zero Temperature selects greedy decoding;
// zero TopK, TopP and MinP disable those transforms.
type Options struct {
	Temperature float32
	TopK        int
	TopP        float32
	MinP        float32
	Seed        *uint64
}

type configured struct {
	sampler    Sampler
	transforms []Transform
}

func (c configured) Sample(logits []float32, transforms ...Transform) (int, error) {
	return c.sampler.Sample(logits, append(c.transforms[:len(c.transforms):len(c.transforms)], transforms...)...)
}

// New returns a sampler applying the transforms selected by opts.
func New(opts Options) (Sampler, error) {
	if opts.Temperature < 0 || opts.Temperature > 2 {
		return nil, fmt.Errorf("%w: temperature %v must be between 0 and 2", errtypes.ErrInvalidConfiguration, opts.Temperature)
	}
	if opts.TopK < 0 {
		return nil, fmt.Errorf("%w: top k %d must not be negative", errtypes.ErrInvalidConfiguration, opts.TopK)
	}
	if opts.TopP < 0 || opts.TopP >= 1 {
		return nil, fmt.Errorf("%w: top p %v must be in [0, 1)", errtypes.ErrInvalidConfiguration, opts.TopP)
	}
	if opts.MinP < 0 || opts.MinP >= 1 {
		return nil, fmt.Errorf("%w: min p %v must be in [0, 1)", errtypes.ErrInvalidConfiguration, opts.MinP)
	}

	if opts.Temperature == 0 {
		return Greedy(), nil
	}

	var transforms []Transform
	if opts.Temperature != 1 {
		transforms = append(transforms, Temperature(opts.Temperature))
	}
	if opts.TopK > 0 {
		transforms = append(transforms, TopK(opts.TopK))
	}
	if opts.TopP > 0 {
		transforms = append(transforms, TopP(opts.TopP))
	}
	if opts.MinP > 0 {
		transforms = append(transforms, MinP(opts.MinP))
	}

	return configured{sampler: Weighted(opts.Seed), transforms: transforms}, nil
}
