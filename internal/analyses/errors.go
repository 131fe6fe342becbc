package analyses

import "errors"

// ErrNotFound is returned when no record matches an upload id.
var ErrNotFound = errors.New("not found")

// ExtractionError means the document text could not be obtained.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return "extract document: " + e.Err.Error() }
func (e *ExtractionError) Unwrap() error { return e.Err }

// AnalysisError is any other failure of the analysis pipeline.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string { return "analyze document: " + e.Err.Error() }
func (e *AnalysisError) Unwrap() error { return e.Err }

// StoreCorruptionError reports a persisted collection that could not be read or decoded.
type StoreCorruptionError struct {
	Path string
	Err  error
}

func (e *StoreCorruptionError) Error() string {
	return "analysis store " + e.Path + " is corrupt: " + e.Err.Error()
}
func (e *StoreCorruptionError) Unwrap() error { return e.Err }

const (
	ErrorCodeValidation = "validation_error"
	ErrorCodeExtraction = "extraction_error"
	ErrorCodeNotFound   = "not_found"
	ErrorCodeInternal   = "internal_error"
)
