// Package toy implements a small n-gram language model over text pieces.
// It is trained from a plain-text corpus at load time and is enough to drive
// the generation loop end to end without external weights.
package toy

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// DefaultOrder is the n-gram order used when none is given.
const DefaultOrder = 3

// smoothing blends the unigram distribution into every context so no piece
// ever has zero probability.
const smoothing = 0.1

// Model is an n-gram model with backoff to shorter contexts. It keeps the
// running context of the ids fed so far; ForwardToken advances it.
type Model struct {
	Vocab *Vocab
	Order int

	counts  map[string]map[int]float64
	unigram []float64
	history []int
}

// Train builds a model of the given order from corpus.
func Train(corpus string, order int) (*Model, error) {
	if order <= 0 {
		order = DefaultOrder
	}
	vocab := BuildVocab(corpus)
	if vocab.Size() == 0 {
		return nil, errors.New("toy: empty corpus")
	}

	m := &Model{
		Vocab:   vocab,
		Order:   order,
		counts:  make(map[string]map[int]float64),
		unigram: make([]float64, vocab.Size()),
	}

	ids := vocab.Encode(corpus)
	var total float64
	for i, id := range ids {
		m.unigram[id]++
		total++
		for n := 1; n < order && n <= i; n++ {
			key := contextKey(ids[i-n : i])
			next, ok := m.counts[key]
			if !ok {
				next = make(map[int]float64)
				m.counts[key] = next
			}
			next[id]++
		}
	}
	for i := range m.unigram {
		m.unigram[i] /= total
	}
	return m, nil
}

// ForwardToken appends id to the context and returns logits over the
// vocabulary for the next piece. Unknown ids break the context.
func (m *Model) ForwardToken(id int) ([]float32, error) {
	if id < 0 || id >= m.Vocab.Size() {
		m.history = m.history[:0]
	} else {
		m.history = append(m.history, id)
		if keep := m.Order - 1; len(m.history) > keep {
			m.history = append(m.history[:0], m.history[len(m.history)-keep:]...)
		}
	}
	return m.logits(), nil
}

// Reset clears the running context.
func (m *Model) Reset() {
	m.history = m.history[:0]
}

func (m *Model) logits() []float32 {
	out := make([]float32, len(m.unigram))
	next := m.longestContext()

	var total float64
	for _, c := range next {
		total += c
	}
	for j, p := range m.unigram {
		var c float64
		if next != nil {
			c = next[j] / total
		}
		out[j] = float32(math.Log(c + smoothing*p))
	}
	return out
}

// longestContext returns the next-piece counts of the longest suffix of the
// history seen during training, or nil when none was.
func (m *Model) longestContext() map[int]float64 {
	for n := len(m.history); n > 0; n-- {
		if next, ok := m.counts[contextKey(m.history[len(m.history)-n:])]; ok {
			return next
		}
	}
	return nil
}

func contextKey(ids []int) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}
