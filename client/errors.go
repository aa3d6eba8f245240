package client

import (
	"errors"

	"github.com/famomatic/ttaudio/internal/track"
	"github.com/famomatic/ttaudio/internal/types"
)

var (
	// ErrInvalidInput indicates malformed input (not a video url, or a broken encoded track).
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnexpectedStatus indicates a page or media request returned a status other than 200.
	ErrUnexpectedStatus = types.ErrUnexpectedStatus
	// ErrStructureChanged indicates the page data changed shape; the extractor needs updating.
	ErrStructureChanged = types.ErrStructureChanged
	// ErrMalformedField indicates a required field is missing or not numeric.
	ErrMalformedField = types.ErrMalformedField
	// ErrNoPlaybackURL indicates resolution yielded no usable candidate pair.
	ErrNoPlaybackURL = types.ErrNoPlaybackURL
	// ErrRetryExhausted indicates both playback candidates failed.
	ErrRetryExhausted = types.ErrRetryExhausted
	// ErrTransport indicates a connection level failure.
	ErrTransport = types.ErrTransport
)

// InvalidInputDetailError carries the reason an input was rejected.
type InvalidInputDetailError struct {
	Input  string
	Reason string
	Err    error
}

func (e *InvalidInputDetailError) Error() string {
	msg := "invalid input: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidInputDetailError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidInput}
	}
	return []error{ErrInvalidInput, e.Err}
}

// ErrorCategory is a coarse error class for hosts and CLIs.
type ErrorCategory string

const (
	ErrorCategoryInvalidInput     ErrorCategory = "invalid_input"
	ErrorCategoryUnexpectedStatus ErrorCategory = "unexpected_status"
	ErrorCategoryStructureChanged ErrorCategory = "structure_changed"
	ErrorCategoryMalformedField   ErrorCategory = "malformed_field"
	ErrorCategoryNoPlaybackURL    ErrorCategory = "no_playback_url"
	ErrorCategoryRetryExhausted   ErrorCategory = "retry_exhausted"
	ErrorCategoryTransport        ErrorCategory = "transport"
	ErrorCategoryUnknown          ErrorCategory = "unknown"
)

// ClassifyError maps err to its category. The outermost classification wins,
// so a RetryExhausted wrapping an UnexpectedStatus is RetryExhausted.
func ClassifyError(err error) ErrorCategory {
	var typed *types.Error
	if errors.As(err, &typed) {
		switch typed.Kind {
		case types.KindUnexpectedStatus:
			return ErrorCategoryUnexpectedStatus
		case types.KindStructureChanged:
			return ErrorCategoryStructureChanged
		case types.KindMalformedField:
			return ErrorCategoryMalformedField
		case types.KindNoPlaybackURL:
			return ErrorCategoryNoPlaybackURL
		case types.KindRetryExhausted:
			return ErrorCategoryRetryExhausted
		case types.KindTransport:
			return ErrorCategoryTransport
		}
	}
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, track.ErrMalformedTrack),
		errors.Is(err, track.ErrUnsupportedVersion):
		return ErrorCategoryInvalidInput
	default:
		return ErrorCategoryUnknown
	}
}

// IsPermanent reports whether err means the extractor needs maintenance.
// Such failures should not be retried.
func IsPermanent(err error) bool {
	return types.IsPermanent(err)
}

// Severity returns "common", "suspicious" or "fault" for err.
func Severity(err error) string {
	return string(types.SeverityOf(err))
}
