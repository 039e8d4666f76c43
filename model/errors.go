package model

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoActiveAgent rejects a send attempted before an agent is selected.
	ErrNoActiveAgent = errors.New("no agent selected")

	// ErrSendInFlight rejects a send while another one has not settled.
	ErrSendInFlight = errors.New("a message is already being sent")
)

// NoAgentGuidance is shown to the user when ErrNoActiveAgent is returned.
const NoAgentGuidance = "Select an agent first (alt+a), then send your message."

// FailureKind groups transport failures the way the transcript reports them.
type FailureKind string

const (
	FailureUnavailable FailureKind = "transport_unavailable"
	FailureHTTP        FailureKind = "http_error"
	FailureCanceled    FailureKind = "canceled"
	FailureOther       FailureKind = "error"
)

// httpStatusError is implemented by transport errors carrying an HTTP status.
type httpStatusError interface {
	error
	HTTPStatus() int
}

// unavailableError is implemented by transport errors for connection failures.
type unavailableError interface {
	error
	Unavailable() bool
}

// ClassifyFailure maps err to a FailureKind and, for HTTP errors, the status.
func ClassifyFailure(err error) (FailureKind, int) {
	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		return FailureHTTP, statusErr.HTTPStatus()
	}
	var unavailable unavailableError
	if errors.As(err, &unavailable) && unavailable.Unavailable() {
		return FailureUnavailable, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureCanceled, 0
	}
	return FailureOther, 0
}

// DescribeFailure renders a human-readable line for a failed action, e.g.
// "Failed to send message: server responded with HTTP 500".
func DescribeFailure(action string, err error) string {
	kind, status := ClassifyFailure(err)
	switch kind {
	case FailureHTTP:
		return fmt.Sprintf("Failed to %s: server responded with HTTP %d", action, status)
	case FailureUnavailable:
		return fmt.Sprintf("Failed to %s: server unreachable", action)
	case FailureCanceled:
		return fmt.Sprintf("Failed to %s: request canceled", action)
	default:
		return fmt.Sprintf("Failed to %s", action)
	}
}
