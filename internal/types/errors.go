package types

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnexpectedStatus indicates a page or media request returned a status other than 200.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrStructureChanged indicates the embedded page data no longer has the expected shape.
	// The extractor most likely needs updating.
	ErrStructureChanged = errors.New("page data structure changed")

	// ErrMalformedField indicates a field expected to be numeric (or present) is not.
	ErrMalformedField = errors.New("malformed field")

	// ErrNoPlaybackURL indicates resolution succeeded but yielded no usable candidate pair.
	ErrNoPlaybackURL = errors.New("no playback url")

	// ErrRetryExhausted indicates both the primary and the fallback stream attempts failed.
	ErrRetryExhausted = errors.New("retry exhausted")

	// ErrTransport indicates a connection level failure (dial, TLS, reset, body read).
	ErrTransport = errors.New("transport failure")
)

// Kind classifies an Error.
type Kind string

const (
	KindUnexpectedStatus Kind = "unexpected_status"
	KindStructureChanged Kind = "structure_changed"
	KindMalformedField   Kind = "malformed_field"
	KindNoPlaybackURL    Kind = "no_playback_url"
	KindRetryExhausted   Kind = "retry_exhausted"
	KindTransport        Kind = "transport"
)

var kindSentinels = map[Kind]error{
	KindUnexpectedStatus: ErrUnexpectedStatus,
	KindStructureChanged: ErrStructureChanged,
	KindMalformedField:   ErrMalformedField,
	KindNoPlaybackURL:    ErrNoPlaybackURL,
	KindRetryExhausted:   ErrRetryExhausted,
	KindTransport:        ErrTransport,
}

// Severity tells a host whether an error is expected or worth investigating.
type Severity string

const (
	// SeverityCommon errors are expected and safe to show to end users.
	SeverityCommon Severity = "common"
	// SeveritySuspicious errors point at an upstream change or an unknown failure mode.
	SeveritySuspicious Severity = "suspicious"
	// SeverityFault errors point at a bug.
	SeverityFault Severity = "fault"
)

// Error is the error type surfaced by the resolver and the streaming session.
type Error struct {
	Kind       Kind
	Severity   Severity
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.StatusCode != 0 && e.Err == nil {
		msg = fmt.Sprintf("%s: status=%d", msg, e.StatusCode)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// NewStatusError reports a non-200 response.
func NewStatusError(statusCode int) *Error {
	severity := SeveritySuspicious
	if statusCode == http.StatusNotFound {
		severity = SeverityCommon
	}
	return &Error{
		Kind:       KindUnexpectedStatus,
		Severity:   severity,
		Message:    "unexpected status code",
		StatusCode: statusCode,
	}
}

// NewStructureError reports a missing data container in the page.
func NewStructureError(message string) *Error {
	return &Error{
		Kind:     KindStructureChanged,
		Severity: SeveritySuspicious,
		Message:  message,
	}
}

// NewFieldError reports a missing or malformed field.
func NewFieldError(field string, err error) *Error {
	return &Error{
		Kind:     KindMalformedField,
		Severity: SeveritySuspicious,
		Message:  "malformed field " + field,
		Err:      err,
	}
}

// Wrap attaches context to err while keeping its classification.
// Errors that are not already *Error become suspicious errors of kind k.
func Wrap(k Kind, message string, err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return &Error{
			Kind:       typed.Kind,
			Severity:   typed.Severity,
			Message:    message,
			StatusCode: typed.StatusCode,
			Err:        err,
		}
	}
	return &Error{
		Kind:     k,
		Severity: SeveritySuspicious,
		Message:  message,
		Err:      err,
	}
}

// IsPermanent reports whether err signals that the extractor needs maintenance
// rather than a transient failure. Such errors must not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrStructureChanged) || errors.Is(err, ErrMalformedField)
}

// SeverityOf returns the severity of the outermost *Error in err's chain.
func SeverityOf(err error) Severity {
	var typed *Error
	if errors.As(err, &typed) && typed.Severity != "" {
		return typed.Severity
	}
	return SeverityFault
}
