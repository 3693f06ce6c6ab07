package executor

import (
	"strings"
	"testing"

	"codeval/internal/eval/sandbox/result"
)

func TestCappedBufferUnderLimit(t *testing.T) {
	buf := newCappedBuffer(64)
	n, err := buf.Write([]byte("hello world"))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if n != 11 {
		t.Fatalf("Write reported %d bytes, want 11", n)
	}
	got, truncated := buf.Contents()
	if got != "hello world" {
		t.Fatalf("Contents = %q, want %q", got, "hello world")
	}
	if truncated {
		t.Fatal("buffer under the ceiling must not report truncation")
	}
}

func TestCappedBufferTruncates(t *testing.T) {
	buf := newCappedBuffer(8)
	n, err := buf.Write([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if n != 16 {
		t.Fatalf("Write must report full consumption, got %d", n)
	}
	got, truncated := buf.Contents()
	if !truncated {
		t.Fatal("expected truncation")
	}
	if !strings.HasPrefix(got, "01234567") {
		t.Fatalf("Contents = %q, want prefix %q", got, "01234567")
	}
	if !strings.HasSuffix(got, result.TruncationMarker) {
		t.Fatalf("Contents = %q, want truncation marker suffix", got)
	}
}

func TestCappedBufferDiscardsAfterFull(t *testing.T) {
	buf := newCappedBuffer(4)
	if _, err := buf.Write([]byte("abcd")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	// A writer at the ceiling must still accept bytes so the child
	// process never blocks on a full pipe.
	n, err := buf.Write([]byte("more"))
	if err != nil {
		t.Fatalf("Write past ceiling returned error: %v", err)
	}
	if n != 4 {
		t.Fatalf("Write past ceiling reported %d bytes, want 4", n)
	}
	got, truncated := buf.Contents()
	if !truncated {
		t.Fatal("expected truncation after overflow write")
	}
	if !strings.HasPrefix(got, "abcd") || strings.Contains(got, "more") {
		t.Fatalf("Contents = %q, overflow bytes must be discarded", got)
	}
}

func TestCappedBufferExactFill(t *testing.T) {
	buf := newCappedBuffer(4)
	if _, err := buf.Write([]byte("abcd")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	got, truncated := buf.Contents()
	if truncated {
		t.Fatal("exact fill without overflow must not report truncation")
	}
	if got != "abcd" {
		t.Fatalf("Contents = %q, want %q", got, "abcd")
	}
}
