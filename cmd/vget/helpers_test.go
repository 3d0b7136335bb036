package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCollectURLsArgsAndBatchFile(t *testing.T) {
	dir := t.TempDir()
	batch := filepath.Join(dir, "urls.txt")
	content := "# queued links\nhttps://example.com/b\n\nhttps://example.com/a\n"
	if err := os.WriteFile(batch, []byte(content), 0o644); err != nil {
		t.Fatalf("write batch file: %v", err)
	}

	urls, err := collectURLs([]string{"https://example.com/a", "https://example.com/c"}, batch, nil)
	if err != nil {
		t.Fatalf("collectURLs: %v", err)
	}

	want := []string{"https://example.com/a", "https://example.com/c", "https://example.com/b"}
	if len(urls) != len(want) {
		t.Fatalf("got %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("got %v, want %v", urls, want)
		}
	}
}

func TestCollectURLsStdin(t *testing.T) {
	stdin := strings.NewReader("https://example.com/x\nhttps://example.com/y\n")
	urls, err := collectURLs(nil, "-", stdin)
	if err != nil {
		t.Fatalf("collectURLs: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://example.com/x" {
		t.Fatalf("unexpected urls: %v", urls)
	}
}

func TestCollectURLsMissingBatchFile(t *testing.T) {
	_, err := collectURLs(nil, filepath.Join(t.TempDir(), "absent.txt"), nil)
	if err == nil {
		t.Fatal("expected error for missing batch file")
	}
}

func TestFormatETA(t *testing.T) {
	cases := []struct {
		seconds *float64
		want    string
	}{
		{nil, "--:--"},
		{floatPtr(0), "00:00"},
		{floatPtr(75), "01:15"},
		{floatPtr(3725), "1:02:05"},
		{floatPtr(-1), "--:--"},
	}
	for _, tc := range cases {
		if got := formatETA(tc.seconds); got != tc.want {
			t.Errorf("formatETA(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	if got := formatSpeed(nil); got != "--" {
		t.Fatalf("formatSpeed(nil) = %q", got)
	}
	speed := float64(2 * 1024 * 1024)
	got := formatSpeed(&speed)
	if !strings.HasSuffix(got, "/s") {
		t.Fatalf("formatSpeed = %q, want a rate", got)
	}
}

func TestShortURL(t *testing.T) {
	short := "https://example.com/v"
	if got := shortURL(short); got != short {
		t.Fatalf("shortURL(%q) = %q", short, got)
	}
	long := "https://example.com/" + strings.Repeat("x", 100)
	got := shortURL(long)
	if len(got) != 60 || !strings.HasSuffix(got, "...") {
		t.Fatalf("shortURL did not truncate: %q", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(90*time.Second + 400*time.Millisecond); got != "1m30s" {
		t.Fatalf("formatElapsed = %q", got)
	}
}

func floatPtr(v float64) *float64 { return &v }
