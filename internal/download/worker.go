package download

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"vget/internal/cancel"
	"vget/internal/progress"
)

// EventKind discriminates worker events.
type EventKind int

const (
	// EventLog carries a human-readable output line.
	EventLog EventKind = iota
	// EventProgress carries a decoded progress update for one URL.
	EventProgress
	// EventFile reports a file fully moved to its final location.
	EventFile
	// EventDone reports the whole batch finishing successfully.
	EventDone
	// EventCanceled reports a user-initiated abort.
	EventCanceled
	// EventError reports the failure that stopped the batch.
	EventError
)

// Event is one item on the worker's channel. URL tags progress and file
// events with the download that produced them.
type Event struct {
	Kind     EventKind
	URL      string
	Line     string
	Progress *progress.Event
	Path     string
	Elapsed  time.Duration
	Err      error
}

// Worker runs a batch off the caller's goroutine. Consumers drain Events at
// their own cadence; the channel closes after the terminal Done, Canceled, or
// Error event.
type Worker struct {
	id     string
	events chan Event
}

// eventBuffer absorbs bursts of engine output so the orchestration loop is
// rarely blocked on a slow consumer.
const eventBuffer = 256

// StartBatch launches the batch on a new goroutine. The Options callbacks
// are chained: events are emitted on the channel in addition to any caller
// callbacks already present. The caller's Options value is left untouched, so
// it can seed further batches after this worker's channel closes.
func StartBatch(ctx context.Context, urls []string, opts *Options) *Worker {
	w := &Worker{
		id:     uuid.NewString(),
		events: make(chan Event, eventBuffer),
	}

	batchOpts := *opts

	userProgress := opts.OnProgress
	batchOpts.OnProgress = func(url string, ev *progress.Event) {
		if ev.Status == progress.StatusFinished && ev.Filename != "" {
			w.events <- Event{Kind: EventFile, URL: url, Path: ev.Filename, Progress: ev}
		} else {
			w.events <- Event{Kind: EventProgress, URL: url, Progress: ev}
		}
		if userProgress != nil {
			userProgress(url, ev)
		}
	}

	userLog := opts.LogLine
	batchOpts.LogLine = func(line string) {
		w.events <- Event{Kind: EventLog, Line: line}
		if userLog != nil {
			userLog(line)
		}
	}

	go func() {
		defer close(w.events)
		started := time.Now()
		err := DownloadMany(ctx, urls, &batchOpts)
		switch {
		case err == nil:
			w.events <- Event{Kind: EventDone, Elapsed: time.Since(started)}
		case errors.Is(err, cancel.ErrCanceled):
			w.events <- Event{Kind: EventCanceled, Elapsed: time.Since(started)}
		default:
			w.events <- Event{Kind: EventError, Err: err}
		}
	}()

	return w
}

// ID is the batch correlation identifier.
func (w *Worker) ID() string { return w.id }

// Events is the worker's outbound channel.
func (w *Worker) Events() <-chan Event { return w.events }
