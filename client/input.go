package client

import (
	"regexp"
	"strings"
)

var videoURLPattern = regexp.MustCompile(`^https://(?:www\.|m\.)?tiktok\.com/@([^/]+)/video/([0-9]+)(?:.*)$`)

// VideoRef identifies a video by author handle and numeric id.
type VideoRef struct {
	Author  string
	VideoID string
}

// Match reports whether input is a TikTok video URL and returns its parts as
// written. A non-matching input is not an error: another source may own it.
func Match(input string) (VideoRef, bool) {
	m := videoURLPattern.FindStringSubmatch(strings.TrimSpace(input))
	if len(m) != 3 {
		return VideoRef{}, false
	}
	return VideoRef{Author: m[1], VideoID: m[2]}, true
}

// ParseVideoURL is Match for callers that need an error.
func ParseVideoURL(input string) (VideoRef, error) {
	ref, ok := Match(input)
	if !ok {
		return VideoRef{}, &InvalidInputDetailError{Input: input, Reason: "unsupported_url"}
	}
	return ref, nil
}
