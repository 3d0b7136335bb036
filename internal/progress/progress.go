// Package progress decodes the machine-parseable progress lines the download
// engine emits on its combined output stream.
//
// The engine is configured (see internal/services/ytdlp) to print one
// pipe-delimited line per status update behind a fixed literal marker, plus a
// single file marker once an output file reaches its final location. Parse
// understands the six-field grammar; lines that do not match are ordinary log
// output and are never an error.
package progress

import (
	"fmt"
	"strconv"
	"strings"
)

// Marker prefixes distinguish machine-parseable lines from human-readable log
// output sharing the same stream.
const (
	// LineMarker prefixes per-update progress lines.
	LineMarker = "__VGET_PROGRESS__:"
	// FileMarker prefixes the line carrying the final output file path.
	FileMarker = "__VGET_FILE__:"
)

// Statuses the engine reports. Any other value is passed through untouched.
const (
	StatusDownloading = "downloading"
	StatusFinished    = "finished"
)

const fieldCount = 6

// Event is one decoded progress update. Optional fields are nil when the
// engine reported no value; TotalBytes and TotalBytesEstimate are never both
// set. Events are ephemeral: constructed per line, handed to the caller, and
// discarded.
type Event struct {
	Status             string
	DownloadedBytes    *int64
	TotalBytes         *int64
	TotalBytesEstimate *int64
	Speed              *float64
	ETA                *float64

	// Filename is set only on synthetic finished events built from a file
	// marker line.
	Filename string
}

// Parse decodes a six-field pipe-delimited progress payload:
//
//	status|downloaded|total|total_estimate|speed|eta
//
// It reports ok=false for any line that does not match that shape so the
// caller can treat it as a plain log line.
func Parse(line string) (*Event, bool) {
	fields := strings.Split(strings.TrimSpace(line), "|")
	if len(fields) != fieldCount {
		return nil, false
	}

	status := strings.TrimSpace(fields[0])
	if status == "" {
		status = StatusDownloading
	}

	ev := &Event{
		Status:          status,
		DownloadedBytes: parseBytes(fields[1]),
		Speed:           parseFloat(fields[4]),
		ETA:             parseFloat(fields[5]),
	}
	if total := parseBytes(fields[2]); total != nil {
		ev.TotalBytes = total
	} else if estimate := parseBytes(fields[3]); estimate != nil {
		ev.TotalBytesEstimate = estimate
	}
	return ev, true
}

// Finished builds the synthetic event emitted when the engine reports a file
// fully moved to its final location.
func Finished(path string) *Event {
	return &Event{Status: StatusFinished, Filename: path}
}

// Total returns the known or estimated total byte count, preferring the exact
// value, and reports whether either was present.
func (e *Event) Total() (int64, bool) {
	if e.TotalBytes != nil {
		return *e.TotalBytes, true
	}
	if e.TotalBytesEstimate != nil {
		return *e.TotalBytesEstimate, true
	}
	return 0, false
}

// Percent computes completion in the range [0,100], reporting false when the
// event lacks the data to do so.
func (e *Event) Percent() (float64, bool) {
	if e.Status == StatusFinished {
		return 100, true
	}
	total, ok := e.Total()
	if !ok || total <= 0 || e.DownloadedBytes == nil {
		return 0, false
	}
	pct := float64(*e.DownloadedBytes) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

// FormatLine re-serializes an event to the wire grammar. Absent fields render
// as empty columns, matching what the engine emits for missing values.
func (e *Event) FormatLine() string {
	cols := [fieldCount]string{e.Status, "", "", "", "", ""}
	if e.DownloadedBytes != nil {
		cols[1] = strconv.FormatInt(*e.DownloadedBytes, 10)
	}
	if e.TotalBytes != nil {
		cols[2] = strconv.FormatInt(*e.TotalBytes, 10)
	}
	if e.TotalBytesEstimate != nil {
		cols[3] = strconv.FormatInt(*e.TotalBytesEstimate, 10)
	}
	if e.Speed != nil {
		cols[4] = formatFloat(*e.Speed)
	}
	if e.ETA != nil {
		cols[5] = formatFloat(*e.ETA)
	}
	return strings.Join(cols[:], "|")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseBytes decodes a byte-count field. The engine prints byte counts as
// integers or float-formatted text; blank, "NA", and "None" mean absent, and
// malformed text decodes to absent rather than failing the whole line.
func parseBytes(raw string) *int64 {
	f := parseFloat(raw)
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}

func parseFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "NA" || raw == "None" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// String renders a short human-readable summary, used by debug logging.
func (e *Event) String() string {
	if e.Filename != "" {
		return fmt.Sprintf("%s %s", e.Status, e.Filename)
	}
	if pct, ok := e.Percent(); ok {
		return fmt.Sprintf("%s %.1f%%", e.Status, pct)
	}
	return e.Status
}
