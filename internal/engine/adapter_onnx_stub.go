//go:build !onnx

package engine

import "context"

// onnxLoader refuses to load without the 'onnx' build tag, keeping default
// builds CGO-free.
type onnxLoader struct{}

func newONNXLoader(BackendOptions) Loader { return onnxLoader{} }

func (onnxLoader) Load(context.Context) (Backend, error) {
	return nil, ErrDependencyUnavailable("onnx support not built (missing 'onnx' build tag)")
}
