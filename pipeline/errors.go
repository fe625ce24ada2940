package pipeline

import (
	"errors"
	"fmt"
)

// Error taxonomy of the per-image run. Every error is recovered locally:
// the offending field stays null and the run advances, so these mostly
// matter for logging and for the error counters.
var (
	ErrDecode     = errors.New("decode failed")
	ErrMetadata   = errors.New("metadata extraction failed")
	ErrLLMServer  = errors.New("llm server failed")
	ErrLLMTimeout = errors.New("llm call timed out")
	ErrGeo        = errors.New("geo lookup unavailable")
	ErrHash       = errors.New("file hashing failed")
	ErrPersist    = errors.New("record persistence failed")
)

// InferenceError tags a backend failure with the model that produced it.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed for %s: %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
