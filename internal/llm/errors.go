package llm

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

// Kind classifies analysis failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingCredential
	KindTransport
	KindMalformedResponse
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindTransport:
		return "transport_failure"
	case KindMalformedResponse:
		return "malformed_response"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// User-facing messages.
const (
	MissingCredentialMessage = "API Key is missing. Please ensure the environment variable API_KEY (all uppercase) is configured in your hosting dashboard."
	NoJSONObjectMessage      = "The AI response did not contain a valid JSON object."
	MalformedDataMessage     = "The AI provided malformed data. Please try again."
	DefaultUnclearMessage    = "The photo is too unclear to identify details. Please try a sharper, better-lit photo."
	genericTransportMessage  = "An error occurred during market research."
)

// QuotaExceededMessage replaces the raw service message on 429 / quota failures.
const QuotaExceededMessage = "The AI service rejected the request because the API quota has been exhausted (HTTP 429). " +
	"Check the billing status and quota limits of the Google Cloud project that owns API_KEY, " +
	"make sure billing is enabled for the Gemini API, then try again."

// Error is the single error type surfaced by the analysis core.
// Error() returns a message suitable for showing to the end user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrMissingCredential = &Error{Kind: KindMissingCredential, Message: MissingCredentialMessage}
	ErrTransport         = &Error{Kind: KindTransport, Message: genericTransportMessage}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse, Message: MalformedDataMessage}
	ErrInvalidRequest    = &Error{Kind: KindInvalidRequest, Message: "invalid analysis request"}
)

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown if err is not an analysis error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// newTransportError wraps a failed model call. The underlying message is kept
// verbatim unless it signals rate limiting or quota exhaustion.
func newTransportError(err error) *Error {
	msg := err.Error()
	if msg == "" {
		msg = genericTransportMessage
	}
	if isQuotaError(err) {
		msg = QuotaExceededMessage
	}
	return newError(KindTransport, msg, err)
}

func isQuotaError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "quota")
}
