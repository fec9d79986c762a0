package sample

import (
	"cmp"
	"errors"
	"math"
	"slices"

	pq "github.com/emirpasic/gods/v2/queues/priorityqueue"
	"gonum.org/v1/gonum/floats"
)

type Temperature float64

func (t Temperature) Apply(logits []float64) ([]float64, error) {
	if t <= 0 || t > 2 {
		return nil, errors.New("temperature must be in (0, 2]")
	}

	// subtracting max logit to avoid under/overflow
	maxLogit := floats.Max(logits)
	if math.IsInf(maxLogit, 0) {
		return logits, nil
	}
	for i := range logits {
		logits[i] = (logits[i] - maxLogit) / float64(t)
	}

	return logits, nil
}

type logitMap struct {
	index int
	logit float64
}

func logitMapComparator(a, b logitMap) int {
	return -cmp.Compare(a.logit, b.logit)
}

// TopK keeps the k largest logits and masks the rest to -Inf.
type TopK int

func (k TopK) Apply(logits []float64) ([]float64, error) {
	if k <= 0 {
		return nil, errors.New("k must be greater than 0")
	}
	if int(k) >= len(logits) {
		return logits, nil
	}

	q := pq.NewWith(logitMapComparator)
	for i, logit := range logits {
		q.Enqueue(logitMap{index: i, logit: logit})
	}

	keep := make(map[int]bool, int(k))
	for range int(k) {
		lm, _ := q.Dequeue()
		keep[lm.index] = true
	}

	for i := range logits {
		if !keep[i] {
			logits[i] = math.Inf(-1)
		}
	}

	return logits, nil
}

// TopP keeps the smallest set of most likely logits whose probability mass
// exceeds p.
type TopP float64

func (p TopP) Apply(logits []float64) ([]float64, error) {
	if p <= 0 || p >= 1 {
		return nil, errors.New("p must be between 0 and 1")
	}

	probs := softmax(logits)
	indices := make([]int, len(probs))
	for i := range indices {
		indices[i] = i
	}

	// sort in descending order
	slices.SortStableFunc(indices, func(i, j int) int {
		return cmp.Compare(probs[j], probs[i])
	})

	var cumSum float64
	for i, idx := range indices {
		cumSum += probs[idx]
		if cumSum > float64(p) {
			for _, idx := range indices[i+1:] {
				logits[idx] = math.Inf(-1)
			}
			break
		}
	}
	return logits, nil
}

// MinP masks logits whose probability is below p times the largest one.
type MinP float64

func (p MinP) Apply(logits []float64) ([]float64, error) {
	if p <= 0 || p >= 1 {
		return nil, errors.New("p must be between 0 and 1")
	}

	probs := softmax(logits)
	threshold := floats.Max(probs) * float64(p)

	for i, prob := range probs {
		if prob < threshold {
			logits[i] = math.Inf(-1)
		}
	}

	return logits, nil
}
