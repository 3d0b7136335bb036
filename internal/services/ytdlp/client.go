// Package ytdlp wraps yt-dlp command-line invocations.
//
// One Request drives exactly one child process. The engine's stdout and
// stderr are merged into a single line stream; marker-prefixed lines become
// progress events (see internal/progress) and everything else is log output,
// with the most recent lines retained as diagnostic context for failures.
package ytdlp

import (
	"bufio"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"vget/internal/cancel"
	"vget/internal/progress"
	"vget/internal/tools"
)

var command = exec.Command

const (
	// outputTemplate caps titles at 200 characters and keys files by id so
	// re-downloads land on the same name.
	outputTemplate = "%(title).200s [%(id)s].%(ext)s"

	progressTemplate = "download:" + progress.LineMarker +
		"%(progress.status)s|%(progress.downloaded_bytes)s|%(progress.total_bytes)s|" +
		"%(progress.total_bytes_estimate)s|%(progress.speed)s|%(progress.eta)s"

	filePrint = "after_move:" + progress.FileMarker + "%(filepath)s"

	defaultMergeFormat = "mp4"

	// diagnosticLines bounds how much trailing engine output a failure
	// carries.
	diagnosticLines = 20

	// terminateGrace separates the polite terminate request from the
	// forceful kill.
	terminateGrace = 5 * time.Second
)

// Request describes one download. Immutable once constructed.
type Request struct {
	URL         string
	OutputDir   string
	CookiesPath string
	// MergeFormat forces the merged container; empty defaults to mp4.
	MergeFormat string
}

// DownloadError reports an engine process that exited nonzero or an output
// stream failure. Diagnostic carries the trailing non-progress output lines,
// or a generic exit message when none were seen.
type DownloadError struct {
	ExitCode   int
	Diagnostic string
}

func (e *DownloadError) Error() string { return e.Diagnostic }

// Option configures the client.
type Option func(*Client)

// WithRetries overrides the whole-item retry count.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithFragmentRetries overrides the fragment-level retry count.
func WithFragmentRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.fragmentRetries = n
		}
	}
}

// WithConcurrentFragments overrides how many fragments download in parallel.
func WithConcurrentFragments(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrentFragments = n
		}
	}
}

// Client runs yt-dlp with a fixed invocation policy: best separate
// video+audio streams merged into one container (best single file as
// fallback), playlist expansion disabled, host-safe filenames, and
// machine-parseable progress and completion markers.
type Client struct {
	retries             int
	fragmentRetries     int
	concurrentFragments int
}

// NewClient constructs a Client with the default retry policy.
func NewClient(opts ...Option) *Client {
	c := &Client{retries: 10, fragmentRetries: 10, concurrentFragments: 4}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Args exposes the argument vector built for a request, without the binary.
func (c *Client) Args(req Request, tp tools.Paths) []string {
	merge := strings.TrimSpace(req.MergeFormat)
	if merge == "" {
		merge = defaultMergeFormat
	}

	args := []string{
		"-f", "bv*+ba/b",
		"--merge-output-format", merge,
		"--no-playlist",
		"--retries", strconv.Itoa(c.retries),
		"--fragment-retries", strconv.Itoa(c.fragmentRetries),
		"--concurrent-fragments", strconv.Itoa(c.concurrentFragments),
		"--windows-filenames",
		"--newline",
		"--progress-template", progressTemplate,
		"--print", filePrint,
		"-o", filepath.Join(req.OutputDir, outputTemplate),
	}
	if req.CookiesPath != "" {
		args = append(args, "--cookies", req.CookiesPath)
	}
	if tp.FFmpegDir != "" {
		args = append(args, "--ffmpeg-location", tp.FFmpegDir)
	}
	return append(args, req.URL)
}

// Run launches the engine for one request and blocks until it exits or is
// canceled. The cancel flag is polled before each output line and once after
// process exit; on cancellation the child receives a terminate request,
// escalating to a kill after the grace period. onProgress and logLine may be
// nil.
func (c *Client) Run(req Request, tp tools.Paths, onProgress func(*progress.Event), logLine func(string), flag *cancel.Flag) error {
	if flag.IsSet() {
		return cancel.ErrCanceled
	}
	if logLine == nil {
		logLine = func(string) {}
	}

	cmd := command(tp.YtdlpPath, c.Args(req, tp)...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &DownloadError{Diagnostic: fmt.Sprintf("engine stdout pipe: %v", err)}
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return &DownloadError{Diagnostic: fmt.Sprintf("start engine: %v", err)}
	}

	recent := newTailBuffer(diagnosticLines)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if flag.IsSet() {
			terminate(cmd)
			return cancel.ErrCanceled
		}

		line := strings.TrimSpace(strings.ToValidUTF8(scanner.Text(), string(utf8.RuneError)))
		if line == "" {
			continue
		}

		if payload, ok := strings.CutPrefix(line, progress.LineMarker); ok {
			if ev, ok := progress.Parse(payload); ok && onProgress != nil {
				onProgress(ev)
			}
			continue
		}

		if path, ok := strings.CutPrefix(line, progress.FileMarker); ok {
			if onProgress != nil {
				onProgress(progress.Finished(path))
			}
			logLine("Saved: " + path)
			continue
		}

		recent.Add(line)
		logLine(line)
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	if flag.IsSet() {
		return cancel.ErrCanceled
	}
	if scanErr != nil {
		return &DownloadError{Diagnostic: fmt.Sprintf("read engine output: %v", scanErr)}
	}
	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		diagnostic := strings.Join(recent.Lines(), "\n")
		if diagnostic == "" {
			diagnostic = fmt.Sprintf("yt-dlp exited with code %d.", code)
		}
		return &DownloadError{ExitCode: code, Diagnostic: diagnostic}
	}
	return nil
}

// terminate asks the child to exit and kills it if it has not within the
// grace period. It always reaps the process.
func terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(terminateGrace):
		_ = cmd.Process.Kill()
		<-done
	}
}
