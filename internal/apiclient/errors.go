package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Kind is the classification of a failed call. Every failure leaving
// this package carries exactly one Kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindServer
	KindNetwork
	KindMalformedCredential
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindMalformedCredential:
		return "malformed_credential"
	default:
		return "unknown"
	}
}

// HTTPStatus is the status a local server should answer with when it
// relays a failure of this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthorized, KindMalformedCredential:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) defaultMessage() string {
	switch k {
	case KindUnauthorized:
		return "Your session has expired. Please sign in again."
	case KindForbidden:
		return "You do not have permission to perform this action."
	case KindNotFound:
		return "The requested resource was not found."
	case KindValidation:
		return "The request was rejected as invalid."
	case KindServer:
		return "The server encountered an error. Please try again later."
	case KindNetwork:
		return "Unable to reach the server. Please check your connection and retry."
	case KindMalformedCredential:
		return "The sign-in token could not be read. Please sign in again."
	default:
		return "An unexpected error occurred."
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrValidation          = &Error{Kind: KindValidation}
	ErrServer              = &Error{Kind: KindServer}
	ErrNetwork             = &Error{Kind: KindNetwork}
	ErrUnknown             = &Error{Kind: KindUnknown}
	ErrMalformedCredential = &Error{Kind: KindMalformedCredential}
)

// Error is a classified failure.
type Error struct {
	Kind   Kind
	Status int
	Method string
	Path   string
	// Message is the backend's "message" field when it sent one.
	Message string
	// Fields holds field-level validation messages keyed by field name.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Method != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.Path)
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Status == 0 && t.Message == "" && t.Err == nil
}

// UserMessage is the single line a screen shows for this failure.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
		}
		return strings.Join(parts, "; ")
	}
	return e.Kind.defaultMessage()
}

// KindOf returns the Kind of err, or KindUnknown when err was not
// classified by this package.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// Message returns the user-facing message for err. Network failures
// always use the retry hint; the backend message wins otherwise.
// fallback is used for errors that were never classified.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Kind == KindNetwork {
			return apiErr.Kind.defaultMessage()
		}
		if apiErr.Message != "" || (apiErr.Kind == KindValidation && len(apiErr.Fields) > 0) {
			return apiErr.UserMessage()
		}
		if fallback != "" {
			return fallback
		}
		return apiErr.UserMessage()
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}

// Validation builds a client-side validation failure, used when a call
// is refused before it reaches the network.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// MalformedCredential wraps a token decoding failure.
func MalformedCredential(err error) *Error {
	return &Error{Kind: KindMalformedCredential, Err: err}
}

// classifyStatus maps an HTTP status onto the taxonomy.
func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnprocessableEntity, status == http.StatusBadRequest:
		return KindValidation
	case status >= 500 && status <= 599:
		return KindServer
	default:
		return KindUnknown
	}
}

// classifyTransport decides whether err means no response was received.
func classifyTransport(err error) Kind {
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork
	}
	return KindUnknown
}
