package sitebag

import (
	"errors"
	"fmt"
)

// ErrValidation marks input rejected locally, before any request is sent.
var ErrValidation = errors.New("validation failed")

// TransportError reports a request that did not complete with a readable
// response envelope.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a response envelope with success=false.
type APIError struct {
	Op      string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsAPI(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

// UserMessage returns the text to show for err: the server message for API
// errors, a generic notice for transport failures.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	var te *TransportError
	if errors.As(err, &te) {
		return "Error response from server: " + te.Err.Error()
	}
	return err.Error()
}

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
