package session

import "fmt"

// FailureKind classifies operation failures so callers can distinguish,
// for example, a capture-device problem from a model-load problem without
// parsing error strings.
type FailureKind string

const (
	// FailureCapture — the audio device could not be opened or failed
	// mid-run.
	FailureCapture FailureKind = "capture"

	// FailureModelLoad — the recognition model path is missing, unreadable,
	// or corrupt.
	FailureModelLoad FailureKind = "model-load"

	// FailureExport — the export document could not be written or archived.
	FailureExport FailureKind = "export"

	// FailureInvalidOp — the requested operation is not valid in the
	// current state (double start, speaker switch with no speakers, …).
	FailureInvalidOp FailureKind = "invalid-operation"
)

// Failure is a typed error carrying a FailureKind. Match with errors.As:
//
//	var f *session.Failure
//	if errors.As(err, &f) && f.Kind == session.FailureModelLoad { … }
type Failure struct {
	Kind FailureKind
	Err  error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error { return f.Err }

// NewFailure wraps err with the given kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// Failf creates a Failure from a formatted message.
func Failf(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Err: fmt.Errorf(format, args...)}
}
