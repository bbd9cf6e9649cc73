// internal/domain/homework/errors.go
package homework

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by a poll cycle wraps exactly one of these.
var (
	ErrConfig    = errors.New("required configuration is missing")
	ErrTransport = errors.New("homework API request failed")
	ErrSchema    = errors.New("unexpected homework API response")
	ErrRecord    = errors.New("invalid homework record")
	ErrNotify    = errors.New("failed to send telegram message")
)

// Specific schema and record failures.
var (
	ErrNotAMapping       = fmt.Errorf("%w: response is not a dict", ErrSchema)
	ErrHomeworksNotAList = fmt.Errorf("%w: homeworks is not a list", ErrSchema)
	ErrNoHomeworks       = fmt.Errorf("%w: no homework records in window", ErrSchema)
	ErrRecordNotAMapping = fmt.Errorf("%w: homework is not a dict", ErrRecord)
)

// TransportError is returned when the homework API could not be reached or
// answered with a non-success status. StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("homework API returned status %d: %v", e.StatusCode, e.Err)
		}
		return fmt.Sprintf("homework API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("homework API request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

// MissingFieldError reports a required key absent from the response or from a record.
// Kind is ErrSchema for response-level keys and ErrRecord for record-level keys.
type MissingFieldError struct {
	Field string
	Kind  error
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%v: %s is missing", e.Kind, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return e.Kind }

// UnknownStatusError reports a status value outside the verdict table.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("%v: unrecognized status %q", ErrRecord, e.Status)
}

func (e *UnknownStatusError) Unwrap() error { return ErrRecord }

// KindOf names the error kind for logging. Unclassified errors are reported as "unknown".
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrRecord):
		return "record"
	case errors.Is(err, ErrNotify):
		return "notify"
	default:
		return "unknown"
	}
}
