package feed

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestDecodingReaderPassThrough(t *testing.T) {
	t.Parallel()

	r := NewDecodingReader(strings.NewReader("plain utf-8 текст"))
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(out) != "plain utf-8 текст" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDecodingReaderWindows1251(t *testing.T) {
	t.Parallel()

	// "Привет" in windows-1251.
	src := []byte{0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2}

	r := NewDecodingReader(bytes.NewReader(src))
	if err := r.SetEncoding("windows-1251"); err != nil {
		t.Fatalf("set encoding: %v", err)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(out) != "Привет" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDecodingReaderTinyDestination(t *testing.T) {
	t.Parallel()

	// "Пр" in windows-1251; each letter decodes to two UTF-8 bytes, so a
	// one-byte destination can never hold a whole rune at once.
	src := []byte{0xcf, 0xf0}

	r := NewDecodingReader(bytes.NewReader(src))
	if err := r.SetEncoding("windows-1251"); err != nil {
		t.Fatalf("set encoding: %v", err)
	}

	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(out) > 8 {
			t.Fatalf("runaway read, got %q so far", out)
		}
	}
	if string(out) != "Пр" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDecodingReaderAliases(t *testing.T) {
	t.Parallel()

	r := NewDecodingReader(strings.NewReader(""))

	if err := r.SetEncoding("WIN1251"); err != nil {
		t.Fatalf("alias rejected: %v", err)
	}
	if r.Encoding() != "windows-1251" {
		t.Fatalf("alias not folded: %s", r.Encoding())
	}

	if err := r.SetEncoding("UTF-8"); err != nil {
		t.Fatalf("utf-8 rejected: %v", err)
	}
	if r.Encoding() != "" {
		t.Fatalf("utf-8 must mean pass-through, got %s", r.Encoding())
	}
}

func TestDecodingReaderUnknownLabelKeepsCurrent(t *testing.T) {
	t.Parallel()

	r := NewDecodingReader(strings.NewReader(""))
	if err := r.SetEncoding("windows-1251"); err != nil {
		t.Fatalf("set encoding: %v", err)
	}
	if err := r.SetEncoding("no-such-charset"); err == nil {
		t.Fatalf("expected error for unknown label")
	}
	if r.Encoding() != "windows-1251" {
		t.Fatalf("unknown label must keep the current encoding, got %s", r.Encoding())
	}
}

func TestDecodingReaderSwitchBetweenReads(t *testing.T) {
	t.Parallel()

	ascii := []byte("abc")
	cyrillic := []byte{0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2}

	r := NewDecodingReader(bytes.NewReader(append(ascii, cyrillic...)))

	head := make([]byte, 3)
	if _, err := io.ReadFull(r, head); err != nil {
		t.Fatalf("read head: %v", err)
	}
	if string(head) != "abc" {
		t.Fatalf("unexpected head: %q", head)
	}

	if err := r.SetEncoding("windows-1251"); err != nil {
		t.Fatalf("set encoding: %v", err)
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read rest: %v", err)
	}
	if string(rest) != "Привет" {
		t.Fatalf("unexpected rest: %q", rest)
	}
}
