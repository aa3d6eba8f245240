package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/famomatic/ttaudio/client"
	"github.com/famomatic/ttaudio/internal/track"
)

var sample = track.New(track.Info{
	Title:        "dance",
	Author:       "scout2015",
	LengthMillis: 13000,
	Identifier:   "6718335390845095173",
	URI:          "https://www.tiktok.com/@scout2015/video/6718335390845095173",
})

func TestFormatTrack(t *testing.T) {
	got := formatTrack(sample.Info())
	want := "[6718335390845095173] dance by @scout2015 (13s) https://www.tiktok.com/@scout2015/video/6718335390845095173"
	if got != want {
		t.Fatalf("formatTrack()=%q want=%q", got, want)
	}
}

func TestDecodeCommand(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	encoded, err := client.EncodeTrack(sample)
	if err != nil {
		t.Fatalf("EncodeTrack: %v", err)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"decode", encoded})
	if err := root.Execute(); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out.String(), "dance by @scout2015") {
		t.Fatalf("output=%q", out.String())
	}
}

func TestDecodeCommandRejectsGarbage(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"decode", "garbage"})
	err := root.Execute()
	if client.ClassifyError(err) != client.ErrorCategoryInvalidInput {
		t.Fatalf("err=%v, want invalid input", err)
	}
}

func TestResolveUnrecognizedInput(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"resolve", "https://example.com/nope"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected failure for unrecognized input")
	}
	if !strings.Contains(out.String(), `"recognized":false`) {
		t.Fatalf("output=%q", out.String())
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"resolve": false, "play": false, "decode": false, "serve": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}
