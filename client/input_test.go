package client

import (
	"errors"
	"testing"
)

func TestMatch_SupportedShapes(t *testing.T) {
	tests := []struct {
		in   string
		want VideoRef
	}{
		{in: "https://www.tiktok.com/@scout2015/video/6718335390845095173", want: VideoRef{Author: "scout2015", VideoID: "6718335390845095173"}},
		{in: "https://tiktok.com/@Scout2015/video/6718335390845095173", want: VideoRef{Author: "Scout2015", VideoID: "6718335390845095173"}},
		{in: "https://m.tiktok.com/@a.b_c/video/1?is_from_webapp=1&sender_device=pc", want: VideoRef{Author: "a.b_c", VideoID: "1"}},
		{in: "https://www.tiktok.com/@user/video/42/", want: VideoRef{Author: "user", VideoID: "42"}},
		{in: "  https://www.tiktok.com/@user/video/42  ", want: VideoRef{Author: "user", VideoID: "42"}},
	}
	for _, tt := range tests {
		got, ok := Match(tt.in)
		if !ok {
			t.Fatalf("Match(%q) not recognized", tt.in)
		}
		if got != tt.want {
			t.Fatalf("Match(%q)=%+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestMatch_RejectsOtherShapes(t *testing.T) {
	for _, in := range []string{
		"",
		"6718335390845095173",
		"http://www.tiktok.com/@user/video/1",
		"https://vm.tiktok.com/ZMabc/",
		"https://www.tiktok.com/@user",
		"https://www.tiktok.com/@user/video/abc",
		"https://www.tiktok.com/user/video/1",
		"https://www.youtube.com/watch?v=jNQXAC9IVRw",
		"https://evil.com/?u=https://www.tiktok.com/@user/video/1",
	} {
		if ref, ok := Match(in); ok {
			t.Fatalf("Match(%q)=%+v, want not recognized", in, ref)
		}
	}
}

func TestParseVideoURL_InvalidDetailReason(t *testing.T) {
	_, err := ParseVideoURL("https://example.com/@user/video/1")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	var detail *InvalidInputDetailError
	if !errors.As(err, &detail) {
		t.Fatalf("expected InvalidInputDetailError, got %T", err)
	}
	if detail.Reason != "unsupported_url" {
		t.Fatalf("reason=%q, want %q", detail.Reason, "unsupported_url")
	}
}
