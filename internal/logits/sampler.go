package logits

import (
	"math"
	"math/rand"
)

// SamplerConfig configures the behaviour of a Sampler.
type SamplerConfig struct {
	Temperature   float32
	TopK          int
	TopP          float32
	MinP          float32
	RepeatPenalty float32
	RepeatLastN   int
}

// Sampler picks the next token id from a logits vector. Randomness comes
// from the source handed to NewSampler so runs are reproducible per seed.
type Sampler struct {
	rng    *rand.Rand
	cfg    SamplerConfig
	greedy bool

	topIdx []int
	topVal []float32
	prob   []float64
	seen   map[int]struct{}
}

// NewSampler returns a sampler drawing from rng. A nil rng makes the sampler
// greedy regardless of temperature.
func NewSampler(cfg SamplerConfig, rng *rand.Rand) *Sampler {
	greedy := cfg.Temperature <= 0 || rng == nil
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 40
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	if cfg.RepeatPenalty <= 0 {
		cfg.RepeatPenalty = 1.0
	}
	if cfg.RepeatLastN <= 0 {
		cfg.RepeatLastN = 64
	}
	return &Sampler{
		rng:    rng,
		cfg:    cfg,
		greedy: greedy,
		seen:   make(map[int]struct{}),
	}
}

// Sample draws a single index from logits:
//
//  1. Apply the repetition penalty over the last RepeatLastN ids of recent,
//     skipping ids listed in excludePenalty.
//  2. Greedy configurations return the argmax.
//  3. Otherwise scale by 1/temperature, keep the top k, softmax, drop
//     candidates under MinP * max probability, cut at cumulative TopP and
//     draw from what is left.
//
// logits is modified in place by the repetition penalty.
func (s *Sampler) Sample(logits []float32, recent []int, excludePenalty []int) int {
	if len(logits) == 0 {
		return 0
	}
	s.penalize(logits, recent, excludePenalty)

	if s.greedy || (s.cfg.TopK == 1 && s.cfg.TopP >= 1 && s.cfg.Temperature == 1) {
		return argmax(logits)
	}

	k := min(s.cfg.TopK, len(logits))
	topIdx, topVal := s.topK(logits, k, 1/s.cfg.Temperature)

	prob, ok := s.softmax(topVal)
	if !ok {
		return topIdx[0]
	}
	if s.cfg.MinP > 0 {
		prob, topIdx = filterMinP(prob, topIdx, float64(s.cfg.MinP))
	}

	cut := len(prob)
	if s.cfg.TopP < 1 {
		var c float64
		for i := range prob {
			c += prob[i]
			if float32(c) >= s.cfg.TopP {
				cut = i + 1
				break
			}
		}
	}

	r := s.rng.Float64()
	var c float64
	for i := 0; i < cut; i++ {
		c += prob[i]
		if r <= c {
			return topIdx[i]
		}
	}
	return topIdx[cut-1]
}

func (s *Sampler) penalize(logits []float32, recent, exclude []int) {
	if s.cfg.RepeatPenalty <= 1.0 || len(recent) == 0 {
		return
	}
	clear(s.seen)
	start := max(len(recent)-s.cfg.RepeatLastN, 0)
	for _, id := range recent[start:] {
		if id >= 0 && id < len(logits) {
			s.seen[id] = struct{}{}
		}
	}
	for _, id := range exclude {
		delete(s.seen, id)
	}
	for id := range s.seen {
		if logits[id] > 0 {
			logits[id] /= s.cfg.RepeatPenalty
		} else {
			logits[id] *= s.cfg.RepeatPenalty
		}
	}
}

// softmax fills s.prob with normalized probabilities for vals. It reports
// false when the distribution degenerates.
func (s *Sampler) softmax(vals []float32) ([]float64, bool) {
	maxv := vals[0]
	for _, v := range vals[1:] {
		if v > maxv {
			maxv = v
		}
	}
	if cap(s.prob) < len(vals) {
		s.prob = make([]float64, len(vals))
	}
	prob := s.prob[:len(vals)]
	var sum float64
	for i, v := range vals {
		e := math.Exp(float64(v - maxv))
		prob[i] = e
		sum += e
	}
	if sum == 0 || math.IsNaN(sum) {
		return nil, false
	}
	for i := range prob {
		prob[i] /= sum
	}
	return prob, true
}

// filterMinP drops candidates whose probability is below minP times the
// best one and renormalizes. prob is sorted descending.
func filterMinP(prob []float64, idx []int, minP float64) ([]float64, []int) {
	threshold := prob[0] * minP
	n := 0
	var sum float64
	for i := range prob {
		if prob[i] >= threshold {
			prob[n] = prob[i]
			idx[n] = idx[i]
			sum += prob[i]
			n++
		}
	}
	prob, idx = prob[:n], idx[:n]
	if sum > 0 {
		for i := range prob {
			prob[i] /= sum
		}
	}
	return prob, idx
}

// argmax returns the index of the largest value; ties go to the lowest index.
func argmax(x []float32) int {
	best := 0
	for i := 1; i < len(x); i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}

// topK returns the indices and scaled values of the k largest logits, ordered
// from largest to smallest. O(V*K), fine for small k.
func (s *Sampler) topK(logits []float32, k int, invTemp float32) ([]int, []float32) {
	if cap(s.topIdx) < k+1 {
		s.topIdx = make([]int, 0, k+1)
		s.topVal = make([]float32, 0, k+1)
	}
	topIdx := s.topIdx[:0]
	topVal := s.topVal[:0]

	for i, l := range logits {
		v := l * invTemp
		pos := len(topVal)
		for pos > 0 && topVal[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}
		topIdx = append(topIdx, 0)
		topVal = append(topVal, 0)
		copy(topIdx[pos+1:], topIdx[pos:])
		copy(topVal[pos+1:], topVal[pos:])
		topIdx[pos] = i
		topVal[pos] = v
		if len(topVal) > k {
			topIdx = topIdx[:k]
			topVal = topVal[:k]
		}
	}
	s.topIdx = topIdx
	s.topVal = topVal
	return topIdx, topVal
}
