// Package download sequences one or more URL downloads through the engine.
//
// A batch normalizes its URL list up front, provisions tools once on first
// use, and runs one engine process per URL in order, stopping on the first
// failure or cancellation. The Worker type runs a whole batch on its own
// goroutine and reports through a tagged event channel so interactive callers
// are never blocked on engine output.
package download

import (
	"context"
	"fmt"
	"os"

	"vget/internal/cancel"
	"vget/internal/logging"
	"vget/internal/progress"
	"vget/internal/services/ytdlp"
	"vget/internal/tools"
)

// Runner runs one engine invocation. *ytdlp.Client implements it; tests
// substitute stubs.
type Runner interface {
	Run(req ytdlp.Request, tp tools.Paths, onProgress func(*progress.Event), logLine func(string), flag *cancel.Flag) error
}

// Options carries the collaborator callbacks and knobs shared by every URL in
// a batch. OnProgress and LogLine may be nil; Cancel may be nil when the
// caller does not support cancellation.
type Options struct {
	OutputDir   string
	CookiesPath string
	MergeFormat string

	// Tools short-circuits provisioning when already resolved. DownloadMany
	// fills it after the first URL so later URLs reuse the same paths.
	Tools *tools.Paths

	// Provisioner defaults to tools.New().
	Provisioner *tools.Provisioner

	// Runner defaults to ytdlp.NewClient().
	Runner Runner

	OnProgress func(url string, ev *progress.Event)
	LogLine    func(string)
	Cancel     *cancel.Flag
}

func (o *Options) logLine(line string) {
	if o.LogLine != nil {
		o.LogLine(line)
	}
}

func (o *Options) runner() Runner {
	if o.Runner != nil {
		return o.Runner
	}
	return ytdlp.NewClient()
}

// ensureTools resolves tool paths once per Options value; repeated calls
// reuse the first result without re-validating it.
func (o *Options) ensureTools(ctx context.Context) (tools.Paths, error) {
	if o.Tools != nil {
		return *o.Tools, nil
	}
	p := o.Provisioner
	if p == nil {
		p = tools.New()
	}
	paths, err := p.Ensure(ctx, logging.CallbackLogger(o.logLine))
	if err != nil {
		return tools.Paths{}, err
	}
	o.Tools = &paths
	return paths, nil
}

// Download fetches a single URL. The output directory is created if absent
// and tools are provisioned unless Options already carries them.
func Download(ctx context.Context, url string, opts *Options) error {
	if opts.Cancel.IsSet() {
		return cancel.ErrCanceled
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tp, err := opts.ensureTools(ctx)
	if err != nil {
		return err
	}

	req := ytdlp.Request{
		URL:         url,
		OutputDir:   opts.OutputDir,
		CookiesPath: opts.CookiesPath,
		MergeFormat: opts.MergeFormat,
	}

	var onProgress func(*progress.Event)
	if opts.OnProgress != nil {
		onProgress = func(ev *progress.Event) { opts.OnProgress(url, ev) }
	}

	opts.logLine("Starting: " + url)
	if err := opts.runner().Run(req, tp, onProgress, opts.logLine, opts.Cancel); err != nil {
		return err
	}
	opts.logLine("Done.")
	return nil
}

// DownloadMany fetches each URL in order, stopping the whole batch on the
// first failure or cancellation. Provisioning happens once, lazily, before
// the first download and is reused for the rest of the batch.
func DownloadMany(ctx context.Context, urls []string, opts *Options) error {
	for _, url := range urls {
		if opts.Cancel.IsSet() {
			return cancel.ErrCanceled
		}
		if err := Download(ctx, url, opts); err != nil {
			return err
		}
	}
	return nil
}
