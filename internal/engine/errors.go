package engine

import "errors"

// Structural errors. They are reported by Pipeline.Validate before any row
// is processed.
var (
	ErrUnknownReducer    = errors.New("unknown reducer")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrInvalidStage      = errors.New("invalid stage")
)
