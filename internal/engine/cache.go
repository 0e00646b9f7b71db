package engine

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ResultCache stores generated text for greedy requests, whose output is a
// function of the prompt and parameters.
type ResultCache interface {
	// Get returns the cached text and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, text string) error
	Close() error
}

// CacheKey hashes model, prompt and the effective parameters.
func CacheKey(model, prompt string, p Params) string {
	d := xxhash.New()
	_, _ = d.WriteString(model)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(prompt)
	_, _ = d.Write([]byte{0})
	var buf [8]byte
	for _, v := range []uint64{
		uint64(p.MaxLength),
		math.Float64bits(p.Temperature),
		math.Float64bits(p.TopP),
		uint64(p.NumReturnSequences),
	} {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	return "gemmad:gen:" + strconv.FormatUint(d.Sum64(), 16)
}
