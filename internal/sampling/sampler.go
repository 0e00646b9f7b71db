// Package sampling picks the next token from a logits vector.
package sampling

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Sampler selects token ids from logits. It is not safe for concurrent use.
type Sampler struct {
	temperature float32
	topP        float32
	doSample    bool
	rng         *rand.Rand
	probs       []float32
	index       []probIndex
}

type probIndex struct {
	prob  float32
	index int
}

// New validates the parameters the way generation runtimes do and returns a
// Sampler. Greedy decoding (doSample=false) ignores temperature and topP.
func New(temperature, topP float64, doSample bool, seed int64) (*Sampler, error) {
	if doSample {
		if !(temperature > 0) || math.IsInf(temperature, 0) {
			return nil, fmt.Errorf("temperature has to be a strictly positive float, got %v", temperature)
		}
		if topP < 0 || topP > 1 || math.IsNaN(topP) {
			return nil, fmt.Errorf("top_p has to be a float between 0 and 1, got %v", topP)
		}
	}
	return &Sampler{
		temperature: float32(temperature),
		topP:        float32(topP),
		doSample:    doSample,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// Sample returns the chosen token id. logits is not modified.
func (s *Sampler) Sample(logits []float32) int {
	if len(logits) == 0 {
		return -1
	}
	if !s.doSample {
		return Argmax(logits)
	}
	if cap(s.probs) < len(logits) {
		s.probs = make([]float32, len(logits))
	}
	probs := s.probs[:len(logits)]
	for i, l := range logits {
		probs[i] = l / s.temperature
	}
	Softmax(probs)
	coin := s.rng.Float32()
	if s.topP <= 0 || s.topP >= 1 {
		return sampleMult(probs, coin)
	}
	return s.sampleTopP(probs, coin)
}

// Argmax returns the index of the largest value.
func Argmax(x []float32) int {
	best := 0
	for i := 1; i < len(x); i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}

// Softmax normalizes x in place into a probability distribution.
func Softmax(x []float32) {
	if len(x) == 0 {
		return
	}
	maxV := x[0]
	for _, v := range x[1:] {
		if v > maxV {
			maxV = v
		}
	}
	var sum float32
	for i, v := range x {
		x[i] = float32(math.Exp(float64(v - maxV)))
		sum += x[i]
	}
	for i := range x {
		x[i] /= sum
	}
}

func sampleMult(probs []float32, coin float32) int {
	var cdf float32
	for i, p := range probs {
		cdf += p
		if coin < cdf {
			return i
		}
	}
	return len(probs) - 1
}

// sampleTopP samples from the smallest set of tokens whose cumulative
// probability exceeds topP.
func (s *Sampler) sampleTopP(probs []float32, coin float32) int {
	n := len(probs)
	// Tokens below this cutoff can never be part of the nucleus.
	cutoff := (1 - s.topP) / float32(n-1)
	s.index = s.index[:0]
	for i, p := range probs {
		if p >= cutoff {
			s.index = append(s.index, probIndex{prob: p, index: i})
		}
	}
	if len(s.index) == 0 {
		return Argmax(probs)
	}
	sort.Slice(s.index, func(i, j int) bool { return s.index[i].prob > s.index[j].prob })
	var cum float32
	last := len(s.index) - 1
	for i, pi := range s.index {
		cum += pi.prob
		if cum > s.topP {
			last = i
			break
		}
	}
	r := coin * cum
	var cdf float32
	for i := 0; i <= last; i++ {
		cdf += s.index[i].prob
		if r < cdf {
			return s.index[i].index
		}
	}
	return s.index[last].index
}
