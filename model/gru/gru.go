// Package gru is a reference character language model: an embedding, a
// single gated recurrent unit layer and a dense projection to the
// vocabulary. Token 0 is masked and leaves the recurrent state unchanged.
package gru

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/lanelm/lanelm/decode"
	"github.com/lanelm/lanelm/types/errtypes"
)

type Config struct {
	VocabularySize int
	EmbeddingDim   int
	HiddenSize     int
	Seed           uint64
}

type Model struct {
	vocab, embed, hidden int

	embedding *mat.Dense // vocab x embed

	wz, wr, wh *mat.Dense // hidden x embed
	uz, ur, uh *mat.Dense // hidden x hidden
	bz, br, bh *mat.VecDense

	out  *mat.Dense // vocab x hidden
	bout *mat.VecDense
}

var _ decode.Model = (*Model)(nil)

// New returns a model with Glorot uniform weights drawn from cfg.Seed and
// zero biases.
func New(cfg Config) (*Model, error) {
	if cfg.VocabularySize < 2 || cfg.EmbeddingDim < 1 || cfg.HiddenSize < 1 {
		return nil, fmt.Errorf("%w: gru vocabulary %d, embedding %d, hidden %d",
			errtypes.ErrInvalidConfiguration, cfg.VocabularySize, cfg.EmbeddingDim, cfg.HiddenSize)
	}

	rnd := rand.New(rand.NewSource(cfg.Seed))
	glorot := func(r, c int) *mat.Dense {
		limit := math.Sqrt(6 / float64(r+c))
		data := make([]float64, r*c)
		for i := range data {
			data[i] = (2*rnd.Float64() - 1) * limit
		}
		return mat.NewDense(r, c, data)
	}

	v, e, h := cfg.VocabularySize, cfg.EmbeddingDim, cfg.HiddenSize
	return &Model{
		vocab:     v,
		embed:     e,
		hidden:    h,
		embedding: glorot(v, e),
		wz:        glorot(h, e),
		wr:        glorot(h, e),
		wh:        glorot(h, e),
		uz:        glorot(h, h),
		ur:        glorot(h, h),
		uh:        glorot(h, h),
		bz:        mat.NewVecDense(h, nil),
		br:        mat.NewVecDense(h, nil),
		bh:        mat.NewVecDense(h, nil),
		out:       glorot(v, h),
		bout:      mat.NewVecDense(v, nil),
	}, nil
}

// StateShape is [batch, hidden] with a batch of one.
func (m *Model) StateShape() []int {
	return []int{1, m.hidden}
}

func (m *Model) VocabularySize() int {
	return m.vocab
}

func (m *Model) Infer(tokens []int32, state decode.State) ([]float32, decode.State, error) {
	if err := state.CheckShape("gru state", m.StateShape()); err != nil {
		return nil, decode.State{}, err
	}

	for i, t := range tokens {
		if t < 0 || int(t) >= m.vocab {
			return nil, decode.State{}, fmt.Errorf("%w: token %d at position %d outside vocabulary of %d",
				errtypes.ErrInvalidInput, t, i, m.vocab)
		}
	}

	h := mat.NewVecDense(m.hidden, nil)
	for i, v := range state.Data {
		h.SetVec(i, float64(v))
	}

	for _, t := range tokens {
		if t == 0 {
			continue
		}
		h = m.cell(m.embedding.RowView(int(t)), h)
	}

	logits := mat.NewVecDense(m.vocab, nil)
	logits.MulVec(m.out, h)
	logits.AddVec(logits, m.bout)

	out := make([]float32, m.vocab)
	for i := range out {
		out[i] = float32(logits.AtVec(i))
	}

	next := decode.ZeroState(m.StateShape())
	for i := range next.Data {
		next.Data[i] = float32(h.AtVec(i))
	}

	return out, next, nil
}

// cell advances the hidden state by one input vector:
//
//	z = σ(Wz x + Uz h + bz)
//	r = σ(Wr x + Ur h + br)
//	ĥ = tanh(Wh x + Uh (r ⊙ h) + bh)
//	h' = z ⊙ h + (1 - z) ⊙ ĥ
func (m *Model) cell(x mat.Vector, h *mat.VecDense) *mat.VecDense {
	z := gate(m.wz, m.uz, m.bz, x, h, sigmoid)
	r := gate(m.wr, m.ur, m.br, x, h, sigmoid)

	rh := mat.NewVecDense(m.hidden, nil)
	rh.MulElemVec(r, h)
	candidate := gate(m.wh, m.uh, m.bh, x, rh, math.Tanh)

	next := mat.NewVecDense(m.hidden, nil)
	for i := range m.hidden {
		zi := z.AtVec(i)
		next.SetVec(i, zi*h.AtVec(i)+(1-zi)*candidate.AtVec(i))
	}
	return next
}

func gate(w, u *mat.Dense, b *mat.VecDense, x, h mat.Vector, act func(float64) float64) *mat.VecDense {
	var wx, uh mat.VecDense
	wx.MulVec(w, x)
	uh.MulVec(u, h)
	wx.AddVec(&wx, &uh)
	wx.AddVec(&wx, b)
	for i := range wx.Len() {
		wx.SetVec(i, act(wx.AtVec(i)))
	}
	return &wx
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
