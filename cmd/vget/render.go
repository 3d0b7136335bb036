package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"vget/internal/logging"
	"vget/internal/progress"
)

// batchRenderer turns worker events into terminal output. The interactive
// implementation drives a live progress bar; the plain one samples progress
// into discrete log lines so piped output stays readable.
type batchRenderer interface {
	Log(line string)
	Progress(url string, ev *progress.Event)
	File(path string)
	Close()
}

func newRenderer(out io.Writer, log *slog.Logger) batchRenderer {
	if f, ok := out.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return newBarRenderer(out)
		}
	}
	return newPlainRenderer(log)
}

type barRenderer struct {
	out io.Writer
	url string
	bar *progressbar.ProgressBar
}

func newBarRenderer(out io.Writer) *barRenderer {
	return &barRenderer{out: out}
}

func (r *barRenderer) Log(line string) {
	if r.bar != nil {
		_ = r.bar.Clear()
	}
	fmt.Fprintln(r.out, line)
}

func (r *barRenderer) Progress(url string, ev *progress.Event) {
	if ev.Status == progress.StatusFinished {
		r.finishBar()
		return
	}

	if r.bar == nil || r.url != url {
		r.finishBar()
		r.url = url
		// Unknown totals start in spinner mode; ChangeMax64 upgrades the bar
		// once the engine reports a size.
		max := int64(-1)
		if total, ok := ev.Total(); ok {
			max = total
		}
		r.bar = progressbar.NewOptions64(max,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetDescription(shortURL(url)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(25),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	if total, ok := ev.Total(); ok {
		r.bar.ChangeMax64(total)
	}
	if ev.DownloadedBytes != nil {
		_ = r.bar.Set64(*ev.DownloadedBytes)
	}
}

func (r *barRenderer) File(path string) {
	r.finishBar()
	fmt.Fprintf(r.out, "Saved %s\n", path)
}

func (r *barRenderer) Close() {
	r.finishBar()
}

func (r *barRenderer) finishBar() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	_ = r.bar.Clear()
	r.bar = nil
	r.url = ""
}

type plainRenderer struct {
	log     *slog.Logger
	url     string
	sampler *logging.ProgressSampler
}

func newPlainRenderer(log *slog.Logger) *plainRenderer {
	return &plainRenderer{
		log:     log,
		sampler: logging.NewProgressSampler(5),
	}
}

func (r *plainRenderer) Log(line string) {
	r.log.Info(line)
}

func (r *plainRenderer) Progress(url string, ev *progress.Event) {
	if url != r.url {
		r.url = url
		r.sampler.Reset()
	}
	percent, ok := ev.Percent()
	if !ok {
		return
	}
	if !r.sampler.ShouldLog(percent, ev.Status) {
		return
	}

	attrs := []any{"url", shortURL(url), "percent", fmt.Sprintf("%.0f%%", percent)}
	if ev.DownloadedBytes != nil {
		attrs = append(attrs, "downloaded", formatBytes(*ev.DownloadedBytes))
	}
	attrs = append(attrs, "speed", formatSpeed(ev.Speed), "eta", formatETA(ev.ETA))
	r.log.Info("downloading", attrs...)
}

func (r *plainRenderer) File(path string) {
	r.log.Info("saved file", "path", path)
}

func (r *plainRenderer) Close() {}
