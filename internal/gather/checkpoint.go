package gather

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// progressFile is the single-slot cursor recording the day currently being
// attempted. Its presence on startup means a prior run died mid-range.
const progressFile = "download_progress.txt"

// Checkpoint is the persisted resume cursor. Write lands before each day's
// fetch attempt so a resumed run retries that exact day; Clear runs once
// after the full range completes.
type Checkpoint struct {
	path string
}

// NewCheckpoint creates a Checkpoint stored inside dataDir.
func NewCheckpoint(dataDir string) *Checkpoint {
	return &Checkpoint{path: filepath.Join(dataDir, progressFile)}
}

// Read returns the recorded date and true, or a zero time and false when no
// usable checkpoint exists. A file that cannot be parsed as a date counts as
// absent and is removed on the spot so it cannot poison later runs.
func (c *Checkpoint) Read() (time.Time, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return time.Time{}, false
	}

	day, err := time.Parse("2006-01-02", strings.TrimSpace(string(data)))
	if err != nil {
		slog.Warn("discarding malformed checkpoint", "path", c.path, "content", strings.TrimSpace(string(data)))
		if cerr := c.Clear(); cerr != nil {
			slog.Error("clearing malformed checkpoint", "path", c.path, "error", cerr)
		}
		return time.Time{}, false
	}
	return day, true
}

// Write records day as the one currently being attempted.
func (c *Checkpoint) Write(day time.Time) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, []byte(day.Format("2006-01-02")+"\n"), 0o644)
}

// Clear removes the checkpoint. A checkpoint that is already absent is not
// an error.
func (c *Checkpoint) Clear() error {
	err := os.Remove(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
