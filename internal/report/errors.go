package report

import "fmt"

type ErrorType string

const (
	ErrTypeConfig   ErrorType = "CONFIG"
	ErrTypeNetwork  ErrorType = "NETWORK"
	ErrTypeProvider ErrorType = "PROVIDER"
	ErrTypeTimeout  ErrorType = "TIMEOUT"
)

// TransportError describes a failed delivery. It is logged and counted, never
// returned to code that produced the report.
type TransportError struct {
	Type    ErrorType
	Code    int
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("report %s error: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("report %s error: %s", e.Type, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}
