package ytdlp

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"vget/internal/cancel"
	"vget/internal/progress"
	"vget/internal/tools"
)

func TestArgsFixedPolicy(t *testing.T) {
	client := NewClient()
	req := Request{URL: "https://example.com/watch?v=abc", OutputDir: "/videos"}
	args := client.Args(req, tools.Paths{YtdlpPath: "/cache/yt-dlp"})

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-f bv*+ba/b",
		"--merge-output-format mp4",
		"--no-playlist",
		"--retries 10",
		"--fragment-retries 10",
		"--concurrent-fragments 4",
		"--windows-filenames",
		"--newline",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %v", want, args)
		}
	}
	if args[len(args)-1] != req.URL {
		t.Fatalf("URL must be the final positional argument, got %q", args[len(args)-1])
	}
	if strings.Contains(joined, "--cookies") || strings.Contains(joined, "--ffmpeg-location") {
		t.Fatalf("optional flags present without values: %v", args)
	}
	if !strings.Contains(joined, "%(title).200s [%(id)s].%(ext)s") {
		t.Fatalf("output template missing: %v", args)
	}
}

func TestArgsOptionalFlags(t *testing.T) {
	client := NewClient(WithRetries(3), WithFragmentRetries(2), WithConcurrentFragments(8))
	req := Request{
		URL:         "https://example.com/v",
		OutputDir:   "/videos",
		CookiesPath: "/home/me/cookies.txt",
		MergeFormat: "mkv",
	}
	args := client.Args(req, tools.Paths{YtdlpPath: "/cache/yt-dlp", FFmpegDir: "/cache/ffmpeg-bin"})
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"--merge-output-format mkv",
		"--retries 3",
		"--fragment-retries 2",
		"--concurrent-fragments 8",
		"--cookies /home/me/cookies.txt",
		"--ffmpeg-location /cache/ffmpeg-bin",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %v", want, args)
		}
	}
}

func useHelperProcess(t *testing.T, mode string) *[][]string {
	t.Helper()
	var invocations [][]string
	original := command
	command = func(name string, args ...string) *exec.Cmd {
		invocations = append(invocations, append([]string{name}, args...))
		cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "YTDLP_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() { command = original })
	return &invocations
}

func TestRunForwardsProgressAndLogs(t *testing.T) {
	useHelperProcess(t, "success")

	var events []*progress.Event
	var logs []string
	client := NewClient()
	err := client.Run(
		Request{URL: "https://example.com/v", OutputDir: t.TempDir()},
		tools.Paths{YtdlpPath: "yt-dlp"},
		func(ev *progress.Event) { events = append(events, ev) },
		func(line string) { logs = append(logs, line) },
		cancel.NewFlag(),
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 progress events, got %d: %+v", len(events), events)
	}
	if events[0].Status != progress.StatusDownloading || events[0].DownloadedBytes == nil || *events[0].DownloadedBytes != 100 {
		t.Fatalf("first event = %+v", events[0])
	}
	final := events[2]
	if final.Status != progress.StatusFinished || final.Filename != "/tmp/out/Video [abc].mp4" {
		t.Fatalf("final event = %+v", final)
	}

	var sawSaved, sawNoise bool
	for _, line := range logs {
		if strings.HasPrefix(line, "Saved: ") {
			sawSaved = true
		}
		if strings.HasPrefix(line, "[download] Destination") {
			sawNoise = true
		}
	}
	if !sawSaved || !sawNoise {
		t.Fatalf("log lines missing expected entries: %v", logs)
	}
}

func TestRunFailureCarriesRecentLines(t *testing.T) {
	useHelperProcess(t, "fail-noisy")

	client := NewClient()
	err := client.Run(
		Request{URL: "https://example.com/v", OutputDir: t.TempDir()},
		tools.Paths{YtdlpPath: "yt-dlp"},
		nil, nil, cancel.NewFlag(),
	)

	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
	if dlErr.ExitCode != 1 {
		t.Fatalf("exit code = %d", dlErr.ExitCode)
	}
	if !strings.Contains(dlErr.Diagnostic, "ERROR: unable to download video data") {
		t.Fatalf("diagnostic missing engine output: %q", dlErr.Diagnostic)
	}
	// The buffer is bounded at 20 lines; the earliest noise must be gone.
	if strings.Contains(dlErr.Diagnostic, "noise line 1\n") || strings.HasPrefix(dlErr.Diagnostic, "noise line 1") {
		t.Fatalf("diagnostic should retain only the trailing 20 lines: %q", dlErr.Diagnostic)
	}
	if got := len(strings.Split(dlErr.Diagnostic, "\n")); got != 20 {
		t.Fatalf("diagnostic has %d lines, want 20", got)
	}
}

func TestRunFailureWithOnlyProgressOutput(t *testing.T) {
	useHelperProcess(t, "fail-silent")

	client := NewClient()
	err := client.Run(
		Request{URL: "https://example.com/v", OutputDir: t.TempDir()},
		tools.Paths{YtdlpPath: "yt-dlp"},
		nil, nil, cancel.NewFlag(),
	)

	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
	if dlErr.Diagnostic != "yt-dlp exited with code 3." {
		t.Fatalf("diagnostic = %q", dlErr.Diagnostic)
	}
}

func TestRunCanceledBeforeStartNeverSpawns(t *testing.T) {
	invocations := useHelperProcess(t, "success")

	flag := cancel.NewFlag()
	flag.Set()

	var progressCalls int
	client := NewClient()
	err := client.Run(
		Request{URL: "https://example.com/v", OutputDir: t.TempDir()},
		tools.Paths{YtdlpPath: "yt-dlp"},
		func(*progress.Event) { progressCalls++ },
		nil, flag,
	)
	if !errors.Is(err, cancel.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if progressCalls != 0 {
		t.Fatalf("on_progress invoked %d times after pre-set cancel", progressCalls)
	}
	if len(*invocations) != 0 {
		t.Fatalf("engine spawned despite pre-set cancel: %v", *invocations)
	}
}

func TestRunCancelMidStream(t *testing.T) {
	useHelperProcess(t, "hang")

	flag := cancel.NewFlag()
	var events int
	client := NewClient()

	start := time.Now()
	err := client.Run(
		Request{URL: "https://example.com/v", OutputDir: t.TempDir()},
		tools.Paths{YtdlpPath: "yt-dlp"},
		func(*progress.Event) {
			events++
			flag.Set()
		},
		nil, flag,
	)
	if !errors.Is(err, cancel.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if events == 0 {
		t.Fatal("expected at least one progress event before cancellation")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("cancellation took %v; terminate escalation is bounded at 5s", elapsed)
	}
}

func TestTailBufferBounds(t *testing.T) {
	buf := newTailBuffer(3)
	if got := buf.Lines(); len(got) != 0 {
		t.Fatalf("fresh buffer lines = %v", got)
	}
	for i := 1; i <= 5; i++ {
		buf.Add(fmt.Sprintf("line %d", i))
	}
	got := buf.Lines()
	want := []string{"line 3", "line 4", "line 5"}
	if len(got) != len(want) {
		t.Fatalf("lines = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lines = %v, want %v", got, want)
		}
	}
}

// TestHelperProcess is the child-side of the command override above; it is
// not a real test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("YTDLP_HELPER_MODE") {
	case "success":
		fmt.Println(progress.LineMarker + "downloading|100|1000|NA|50.5|9")
		fmt.Println("[download] Destination: /tmp/out/Video [abc].mp4")
		fmt.Println(progress.LineMarker + "downloading|1000|1000|NA|NA|0")
		fmt.Println()
		fmt.Println(progress.FileMarker + "/tmp/out/Video [abc].mp4")
		os.Exit(0)
	case "fail-noisy":
		for i := 1; i <= 25; i++ {
			fmt.Printf("noise line %d\n", i)
		}
		fmt.Println("ERROR: unable to download video data")
		os.Exit(1)
	case "fail-silent":
		fmt.Println(progress.LineMarker + "downloading|100|1000|NA|50|9")
		os.Exit(3)
	case "hang":
		for {
			fmt.Println(progress.LineMarker + "downloading|1|1000|NA|1|999")
			time.Sleep(10 * time.Millisecond)
		}
	default:
		os.Exit(0)
	}
}
