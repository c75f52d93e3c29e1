package extract

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies extraction failures into the uniform taxonomy surfaced
// to the user. Every provider's wire shape is folded into these five
// kinds; all of them are recoverable and retryable from the caller's
// point of view.
type Kind string

const (
	// KindParse: the provider answered but the payload was not a task list.
	KindParse Kind = "parse"
	// KindEmpty: a well-formed response containing zero usable tasks.
	KindEmpty Kind = "empty"
	// KindAuth: missing, invalid or expired credentials.
	KindAuth Kind = "auth"
	// KindModel: the provider rejected the request (unknown model, bad
	// parameters, quota exhausted on the model).
	KindModel Kind = "model"
	// KindTransport: the provider was unreachable or failed server-side.
	KindTransport Kind = "transport"
)

// Error is the uniform extraction failure. Message is human-readable and
// safe to show verbatim.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// IsKind reports whether err is an extraction error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == kind
}

// kindForStatus maps a provider HTTP status to a taxonomy kind.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindModel
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindModel
	case status == http.StatusTooManyRequests, status >= 500:
		return KindTransport
	default:
		return KindTransport
	}
}

// classifyMessage is the substring fallback for providers that report
// failures as opaque strings. Structured fields are always consulted
// first; this sniffing only refines or rescues classification.
func classifyMessage(msg string) (Kind, bool) {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "api key not valid"),
		strings.Contains(m, "api_key_invalid"),
		strings.Contains(m, "invalid_api_key"),
		strings.Contains(m, "token expired"),
		strings.Contains(m, "token incorrect"),
		strings.Contains(m, "unauthorized"):
		return KindAuth, true
	case strings.Contains(m, "unknown model"),
		strings.Contains(m, "model not found"):
		return KindModel, true
	}
	return "", false
}
