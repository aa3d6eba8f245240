package client

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/famomatic/ttaudio/internal/track"
	"github.com/famomatic/ttaudio/internal/types"
)

func TestClassifyError(t *testing.T) {
	exhausted := &types.Error{
		Kind:     types.KindRetryExhausted,
		Severity: types.SeveritySuspicious,
		Err:      types.NewStatusError(http.StatusForbidden),
	}
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{name: "invalid input", err: ErrInvalidInput, want: ErrorCategoryInvalidInput},
		{name: "invalid detail", err: &InvalidInputDetailError{Reason: "x"}, want: ErrorCategoryInvalidInput},
		{name: "malformed track", err: fmt.Errorf("decode: %w", track.ErrMalformedTrack), want: ErrorCategoryInvalidInput},
		{name: "status", err: types.NewStatusError(http.StatusNotFound), want: ErrorCategoryUnexpectedStatus},
		{name: "structure", err: types.NewStructureError("gone"), want: ErrorCategoryStructureChanged},
		{name: "field", err: types.NewFieldError("video.duration", nil), want: ErrorCategoryMalformedField},
		{name: "exhausted wraps status", err: exhausted, want: ErrorCategoryRetryExhausted},
		{name: "transport", err: types.Wrap(types.KindTransport, "load", errors.New("reset")), want: ErrorCategoryTransport},
		{name: "unknown", err: errors.New("boom"), want: ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		got := ClassifyError(tt.err)
		if got != tt.want {
			t.Fatalf("%s: ClassifyError()=%q want=%q", tt.name, got, tt.want)
		}
	}
}

func TestSentinelsAreShared(t *testing.T) {
	if !errors.Is(types.NewStructureError("x"), ErrStructureChanged) {
		t.Fatalf("ErrStructureChanged does not match internal error")
	}
	if !IsPermanent(types.NewFieldError("music.playUrl", nil)) {
		t.Fatalf("malformed field should be permanent")
	}
	if IsPermanent(types.NewStatusError(http.StatusInternalServerError)) {
		t.Fatalf("status error should not be permanent")
	}
	if got := Severity(types.NewStatusError(http.StatusNotFound)); got != "common" {
		t.Fatalf("Severity(404)=%q, want common", got)
	}
	if got := Severity(errors.New("boom")); got != "fault" {
		t.Fatalf("Severity(untyped)=%q, want fault", got)
	}
}
