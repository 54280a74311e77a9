package resilience

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// DLQEntry records a row that permanently failed its per-row upsert fallback.
// Entries are appended to a per-stage JSONL file for later inspection/replay.
type DLQEntry struct {
	ListingKey string    `json:"listing_key"`
	Stage      string    `json:"stage"`
	Error      string    `json:"error"`
	ErrorType  string    `json:"error_type"` // "transient" or "permanent"
	Row        any       `json:"row,omitempty"`
	FailedAt   time.Time `json:"failed_at"`
}

// DLQ appends dead-lettered rows to JSONL files under a base directory,
// one file per stage.
type DLQ struct {
	dir string
	mu  sync.Mutex
}

// NewDLQ creates a DLQ rooted at dir, creating the directory if needed.
func NewDLQ(dir string) (*DLQ, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "dlq: create dir %s", dir)
	}
	return &DLQ{dir: dir}, nil
}

// Append writes one entry to the stage's JSONL file. FailedAt and ErrorType
// are filled in when unset.
func (d *DLQ) Append(entry DLQEntry) error {
	if entry.FailedAt.IsZero() {
		entry.FailedAt = time.Now().UTC()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "dlq: marshal entry")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	path := filepath.Join(d.dir, entry.Stage+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "dlq: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	if _, err := f.Write(append(line, '\n')); err != nil {
		return eris.Wrapf(err, "dlq: append to %s", path)
	}
	return nil
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
