package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gemmad/pkg/types"
)

// generateBody mirrors types.GenerateRequest with pointers so that omitted
// fields can be told apart from zero values.
type generateBody struct {
	Prompt             *string  `json:"prompt"`
	MaxLength          *int     `json:"max_length"`
	Temperature        *float64 `json:"temperature"`
	TopP               *float64 `json:"top_p"`
	DoSample           *bool    `json:"do_sample"`
	NumReturnSequences *int     `json:"num_return_sequences"`
}

// decodeGenerateRequest parses a /generate body and fills in defaults.
// Malformed JSON, including data after the object, is a 400; a missing prompt
// or a mistyped field is a 422.
func decodeGenerateRequest(r io.Reader) (types.GenerateRequest, error) {
	var body generateBody
	dec := json.NewDecoder(r)
	if err := dec.Decode(&body); err != nil {
		var te *json.UnmarshalTypeError
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &te):
			return types.GenerateRequest{}, unprocessable(fmt.Sprintf("invalid type for field %q: expected %s", te.Field, te.Type))
		case errors.As(err, &mbe):
			// Same message as malformed bodies; the limit is not disclosed.
			return types.GenerateRequest{}, badRequest("invalid JSON body")
		case errors.Is(err, io.EOF):
			return types.GenerateRequest{}, unprocessable("field required: body")
		default:
			return types.GenerateRequest{}, badRequest("invalid JSON body")
		}
	}
	// Exactly one JSON value; trailing whitespace is fine, anything else is not.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return types.GenerateRequest{}, badRequest("invalid JSON body")
	}
	if body.Prompt == nil {
		return types.GenerateRequest{}, unprocessable("field required: prompt")
	}
	req := types.NewGenerateRequest(*body.Prompt)
	if body.MaxLength != nil {
		req.MaxLength = *body.MaxLength
	}
	if body.Temperature != nil {
		req.Temperature = *body.Temperature
	}
	if body.TopP != nil {
		req.TopP = *body.TopP
	}
	if body.DoSample != nil {
		req.DoSample = *body.DoSample
	}
	if body.NumReturnSequences != nil {
		req.NumReturnSequences = *body.NumReturnSequences
	}
	return req, nil
}
