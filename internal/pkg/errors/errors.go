package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid")
	ErrNoContent    = errors.New("no extractable content")
	ErrProvider     = errors.New("provider failure")
	ErrInternal     = errors.New("internal")
)

// Pipeline stage labels attached to propagated errors so callers can tell
// which step of a request failed.
const (
	StageExtract  = "extract"
	StageChunk    = "chunk"
	StageStore    = "store"
	StageEmbed    = "embed"
	StageSearch   = "search"
	StageCompose  = "compose"
	StageGenerate = "generate"
)

type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func AtStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the pipeline stage recorded on err, or "" when none is.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
