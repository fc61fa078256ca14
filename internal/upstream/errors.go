package upstream

import "fmt"

// UnreachableError wraps a transport failure that happened before any
// response arrived (connection refused, DNS failure, dial timeout).
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("upstream unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx upstream response. Body holds a truncated
// snippet of the response body for logs and client error events.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}
