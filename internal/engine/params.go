package engine

import "gemmad/pkg/types"

// MaxLengthCap is the largest max_length forwarded to a backend.
const MaxLengthCap = 1024

// ParamsFromRequest maps a request onto backend parameters. max_length is
// capped at MaxLengthCap; everything else is forwarded verbatim, without
// range checks.
func ParamsFromRequest(req types.GenerateRequest) Params {
	return Params{
		MaxLength:          min(req.MaxLength, MaxLengthCap),
		Temperature:        req.Temperature,
		TopP:               req.TopP,
		DoSample:           req.DoSample,
		NumReturnSequences: req.NumReturnSequences,
	}
}

// NewTokens is the continuation budget for runtimes that count only generated
// tokens: MaxLength minus the prompt length, never negative. Zero means the
// prompt alone already reaches MaxLength.
func (p Params) NewTokens(promptTokens int) int {
	return max(0, p.MaxLength-promptTokens)
}
