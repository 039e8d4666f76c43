package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrTransportUnavailable matches every *UnavailableError via errors.Is.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrMalformedResponse is wrapped when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// maxErrorBody caps how much of a failing response body is kept.
const maxErrorBody = 512

// UnavailableError reports that the server could not be reached at all.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: server unreachable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool {
	return target == ErrTransportUnavailable
}

// Unavailable marks the error as a connectivity failure.
func (e *UnavailableError) Unavailable() bool { return true }

// HTTPError reports a non-2xx response.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }

func newHTTPError(op string, status int, body []byte) *HTTPError {
	return &HTTPError{Op: op, StatusCode: status, Body: errorBody(body)}
}

// errorBody unwraps FastAPI {"detail": ...} bodies and truncates the rest.
func errorBody(body []byte) string {
	var detail struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && len(detail.Detail) > 0 {
		var s string
		if err := json.Unmarshal(detail.Detail, &s); err == nil {
			body = []byte(s)
		} else {
			body = detail.Detail
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

// Describe renders err as a short detail line for the transcript.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Error()
	}
	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return fmt.Sprintf("server unreachable: %v", unavailable.Err)
	}
	if errors.Is(err, ErrMalformedResponse) {
		return "unexpected response from server"
	}
	return err.Error()
}
