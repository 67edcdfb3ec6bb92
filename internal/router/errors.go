package router

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSuperseded is returned to a navigation whose result was discarded because a
	// newer one started.
	ErrSuperseded = errors.New("navigation superseded")
	ErrNoRoutes   = errors.New("route table is empty")
)

// RouteError is a failure raised by a loader, an action or the engine itself. It ends
// up in the nearest error boundary.
type RouteError struct {
	Status  int
	Message string
	Err     error
}

func (e *RouteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}

func NewError(status int, message string, err error) *RouteError {
	return &RouteError{Status: status, Message: message, Err: err}
}

func NotFound(message string) *RouteError {
	return &RouteError{Status: http.StatusNotFound, Message: message}
}

func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// StatusOf maps an error to the HTTP status a page showing it should carry.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var re *RouteError
	if errors.As(err, &re) && re.Status != 0 {
		return re.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the user facing message attached to err.
func MessageOf(err error) string {
	var re *RouteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return http.StatusText(StatusOf(err))
}
