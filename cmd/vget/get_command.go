package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vget/internal/cancel"
	"vget/internal/config"
	"vget/internal/download"
	"vget/internal/history"
	"vget/internal/logging"
	"vget/internal/services/ytdlp"
)

func newGetCommand(cmdCtx *commandContext) *cobra.Command {
	var outputDir string
	var cookiesPath string
	var mergeFormat string
	var batchFile string

	cmd := &cobra.Command{
		Use:   "get [url ...]",
		Short: "Download one or more media URLs",
		Long: `Download media URLs with yt-dlp, merging streams through ffmpeg.
Missing tools are fetched into a local cache on first use. URLs are
processed in order; the batch stops at the first failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			urls, err := collectURLs(args, batchFile, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				return errors.New("no URLs to download (pass URLs or --batch-file)")
			}

			opts := optionsFromConfig(cfg)
			if outputDir != "" {
				expanded, err := config.ExpandPath(outputDir)
				if err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
				opts.OutputDir = expanded
			}
			if cookiesPath != "" {
				expanded, err := config.ExpandPath(cookiesPath)
				if err != nil {
					return fmt.Errorf("resolve cookies path: %w", err)
				}
				opts.CookiesPath = expanded
			}
			if mergeFormat != "" {
				opts.MergeFormat = mergeFormat
			}

			provisioner, err := cmdCtx.provisioner()
			if err != nil {
				return err
			}
			opts.Provisioner = provisioner

			return runGet(cmd, cmdCtx, urls, opts)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for finished downloads")
	cmd.Flags().StringVar(&cookiesPath, "cookies", "", "Netscape cookie file passed to the engine")
	cmd.Flags().StringVar(&mergeFormat, "merge-format", "", "Container for merged output")
	cmd.Flags().StringVarP(&batchFile, "batch-file", "a", "", "File with one URL per line, or - for stdin")

	return cmd
}

func optionsFromConfig(cfg *config.Config) *download.Options {
	return &download.Options{
		OutputDir:   cfg.Paths.OutputDir,
		CookiesPath: cfg.Download.CookiesPath,
		MergeFormat: cfg.Download.MergeFormat,
		Runner: ytdlp.NewClient(
			ytdlp.WithRetries(cfg.Download.Retries),
			ytdlp.WithFragmentRetries(cfg.Download.FragmentRetries),
			ytdlp.WithConcurrentFragments(cfg.Download.ConcurrentFragments),
		),
	}
}

func runGet(cmd *cobra.Command, cmdCtx *commandContext, urls []string, opts *download.Options) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	store, storeErr := cmdCtx.openHistory()
	if storeErr != nil {
		logger.Warn("history unavailable", "error", storeErr)
		store = nil
	} else {
		defer store.Close()
	}

	flag := &cancel.Flag{}
	opts.Cancel = flag

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go watchSignals(sigCh, flag, cmd.ErrOrStderr(), os.Exit)

	worker := download.StartBatch(cmd.Context(), urls, opts)
	renderer := newRenderer(cmd.OutOrStdout(), logger)
	defer renderer.Close()

	return consumeEvents(cmd, worker, urls, renderer, store, logger)
}

// watchSignals requests cancellation on the first signal and force-quits on
// the second, so a trapped user is not held hostage by an engine process that
// ignores its terminate request.
func watchSignals(sigCh <-chan os.Signal, flag *cancel.Flag, out io.Writer, exit func(int)) {
	for range sigCh {
		if flag.Set() {
			fmt.Fprintln(out, "Canceling, waiting for the engine to stop... (press Ctrl-C again to force quit)")
			continue
		}
		fmt.Fprintln(out, "Force quitting.")
		exit(130)
		return
	}
}

// consumeEvents drains the worker channel, rendering as it goes and recording
// terminal per-URL outcomes. Downloads complete in submission order, so the
// count of finished files identifies the URL a failure or cancel landed on.
func consumeEvents(cmd *cobra.Command, worker *download.Worker, urls []string, renderer batchRenderer, store *history.Store, logger *slog.Logger) error {
	record := func(entry history.Entry) {
		if store == nil {
			return
		}
		entry.BatchID = worker.ID()
		if _, err := store.Record(cmd.Context(), entry); err != nil {
			logger.Warn("record history", "error", err)
		}
	}

	completed := 0
	var lastBytes int64
	var terminalErr error

	for ev := range worker.Events() {
		switch ev.Kind {
		case download.EventLog:
			renderer.Log(ev.Line)
		case download.EventProgress:
			if ev.Progress == nil {
				continue
			}
			if ev.Progress.DownloadedBytes != nil {
				lastBytes = *ev.Progress.DownloadedBytes
			}
			renderer.Progress(ev.URL, ev.Progress)
		case download.EventFile:
			renderer.File(ev.Path)
			record(history.Entry{
				URL:      ev.URL,
				FilePath: ev.Path,
				Status:   history.StatusCompleted,
				Bytes:    lastBytes,
			})
			if completed < len(urls) {
				completed++
			}
			lastBytes = 0
		case download.EventDone:
			renderer.Log(fmt.Sprintf("All downloads finished in %s.", formatElapsed(ev.Elapsed)))
		case download.EventCanceled:
			if completed < len(urls) {
				record(history.Entry{
					URL:    urls[completed],
					Status: history.StatusCanceled,
					Bytes:  lastBytes,
				})
			}
			terminalErr = cancel.ErrCanceled
		case download.EventError:
			if completed < len(urls) {
				record(history.Entry{
					URL:    urls[completed],
					Status: history.StatusFailed,
					Detail: ev.Err.Error(),
					Bytes:  lastBytes,
				})
			}
			terminalErr = ev.Err
		}
	}

	return terminalErr
}
