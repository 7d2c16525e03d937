package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRequest means neither a prompt nor an image was given.
	ErrEmptyRequest = errors.New("pipeline: request needs a prompt or an image")
	// ErrInvalidUntil means Request.Until names no stage.
	ErrInvalidUntil = errors.New("pipeline: unknown stop stage")
	// ErrMissingInput means a binary stage was run without input bytes.
	ErrMissingInput = errors.New("pipeline: stage input is empty")
	// ErrUnexpectedText means a stage answered with text instead of an artifact.
	ErrUnexpectedText = errors.New("pipeline: stage returned text instead of an artifact")
)

// StageError attributes a failure to a stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
