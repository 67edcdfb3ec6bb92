package restaurant

import (
	"errors"
	"fmt"
)

var ErrOrderNotFound = errors.New("order not found")

// APIError is a non-success answer from the restaurant API, or a transport failure
// talking to it (StatusCode 0).
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("restaurant api: %s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("restaurant api: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("restaurant api: %s: status %d", e.Op, e.StatusCode)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}
