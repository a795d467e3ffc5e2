package directory

import "fmt"

// TransientError covers network failures, timeouts and 5xx responses from
// the directory. The state machine never commits on one of these; the
// trigger goes back through the retry router.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("directory %s: transient status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RejectedError is a 4xx business rejection. It is permanent: the key moves
// to ERROR with the directory's reason recorded and nothing is retried.
type RejectedError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("directory %s: rejected %s (%s)", e.Op, e.Code, e.Message)
}
