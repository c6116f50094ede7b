package app

import (
	"flag"
	"io"
	"testing"
)

func TestResolveStream(t *testing.T) {
	t.Parallel()

	parse := func(args ...string) (*flag.FlagSet, bool) {
		t.Helper()
		fs := flag.NewFlagSet("translate", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		stream := fs.Bool("stream", false, "")
		if err := fs.Parse(args); err != nil {
			t.Fatalf("parse: %v", err)
		}
		return fs, *stream
	}

	fs, stream := parse()
	if !resolveStream(fs, stream, true) {
		t.Fatal("without the flag the stream setting must win")
	}
	if resolveStream(fs, stream, false) {
		t.Fatal("without the flag the stream setting must win")
	}

	fs, stream = parse("-stream=false")
	if resolveStream(fs, stream, true) {
		t.Fatal("an explicit -stream=false must override the setting")
	}

	fs, stream = parse("-stream")
	if !resolveStream(fs, stream, false) {
		t.Fatal("an explicit -stream must override the setting")
	}
}
