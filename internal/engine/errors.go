package engine

import "errors"

// modelNotLoadedError signals that no backend is loaded yet (HTTP 503).
type modelNotLoadedError struct{}

func (modelNotLoadedError) Error() string { return "Model not loaded" }

// ErrModelNotLoaded returns the error reported before Load has succeeded.
func ErrModelNotLoaded() error { return modelNotLoadedError{} }

// IsModelNotLoaded reports whether err indicates the model is not loaded.
func IsModelNotLoaded(err error) bool {
	var e modelNotLoadedError
	return errors.As(err, &e)
}

// generationError wraps any failure raised by the backend during generation (HTTP 500).
type generationError struct{ cause error }

func (e generationError) Error() string { return "Generation error: " + e.cause.Error() }
func (e generationError) Unwrap() error { return e.cause }

// ErrGeneration wraps cause as a generation failure.
func ErrGeneration(cause error) error { return generationError{cause: cause} }

// IsGeneration reports whether err is a generation failure.
func IsGeneration(err error) bool {
	var e generationError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a runtime that is not compiled into this
// binary or otherwise cannot be initialized.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}
