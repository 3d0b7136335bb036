package history

import "time"

// Status is the terminal outcome of one recorded download.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Entry is one finished download. Detail carries the failure diagnostic for
// failed entries; Bytes is the final downloaded size when the engine reported
// one.
type Entry struct {
	ID         string
	BatchID    string
	URL        string
	FilePath   string
	Status     Status
	Detail     string
	Bytes      int64
	CreatedAt  time.Time
	FinishedAt time.Time
}
