package pipeline

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindStorage
	KindInference
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage"
	case KindInference:
		return "inference"
	default:
		return "unknown"
	}
}

var (
	ErrMissingFile       = errors.New("missing file")
	ErrEmptyFilename     = errors.New("empty filename")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrPayloadTooLarge   = errors.New("payload too large")
)

const (
	internalCode    = "Internal server error"
	internalMessage = "Terjadi kesalahan saat memproses gambar. Silakan coba lagi."
)

// Error aborts a pipeline run. Code and Message are safe to show to the
// client; Err carries the detail that only goes to the log.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Internal wraps err in an error that shows the client only a generic
// message.
func Internal(kind Kind, err error) *Error {
	return &Error{Kind: kind, Code: internalCode, Message: internalMessage, Err: err}
}

// AsError extracts a pipeline *Error from err, falling back to a generic
// internal error for anything else.
func AsError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return Internal(KindInference, err)
}
