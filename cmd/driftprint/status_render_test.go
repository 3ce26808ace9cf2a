package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"driftprint/internal/history"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Profile etc", statusError, "does not exist", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Profile etc:", "[ERROR] does not exist")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("etc", statusOK, "unchanged", true)
	if !strings.HasPrefix(got, "\x1b[32m") {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "\x1b[0m") {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeNonTerminal(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestRenderRunTable(t *testing.T) {
	runs := []*history.Run{{
		ID:        "0123456789abcdef",
		Algorithm: "sha256",
		Digest:    "8376118fc0230e6054e782fb31ae52eb",
		FileCount: 2,
		Bytes:     10,
		CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}}
	out := renderRunTable(runs)
	for _, want := range []string{"Run", "Digest", "01234567", "8376118fc0230e60", "sha256"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789abcdef") {
		t.Fatalf("expected shortened id:\n%s", out)
	}
	if strings.Contains(out, "ALGORITHM") {
		t.Fatalf("expected headers in their original case:\n%s", out)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, value := range []string{"", "text", "JSON", "yaml"} {
		if _, err := parseOutputFormat(value); err != nil {
			t.Fatalf("parseOutputFormat(%q): %v", value, err)
		}
	}
	if _, err := parseOutputFormat("xml"); err == nil {
		t.Fatal("expected error for xml")
	}
}
