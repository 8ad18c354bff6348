package observability

import (
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

const backupDateLayout = "2006-01-02"

// WeeklyFile is an append-only log file that is rotated at midnight at the
// start of the configured weekday. The finished file is renamed with the date
// of the week it started, e.g. hours2days.log.2023-02-12.
type WeeklyFile struct {
	fs      afero.Fs
	path    string
	weekday time.Weekday
	backups int
	clock   clockwork.Clock

	mu       sync.Mutex
	file     afero.File
	rollover time.Time
}

// OpenWeeklyFile opens or creates path for appending. backups limits how many
// rotated files are kept; 0 keeps all of them.
func OpenWeeklyFile(fsys afero.Fs, path string, weekday time.Weekday, backups int, clock clockwork.Clock) (*WeeklyFile, error) {
	w := &WeeklyFile{fs: fsys, path: path, weekday: weekday, backups: backups, clock: clock}

	start := clock.Now()
	if info, err := fsys.Stat(path); err == nil {
		start = info.ModTime()
	}
	w.rollover = nextRollover(start, weekday)

	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends p, rotating first when the rollover time has passed.
func (w *WeeklyFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if now := w.clock.Now(); !now.Before(w.rollover) {
		if err := w.rotate(now); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

// Close closes the current file.
func (w *WeeklyFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *WeeklyFile) open() error {
	f, err := w.fs.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", w.path, err)
	}
	w.file = f
	return nil
}

func (w *WeeklyFile) rotate(now time.Time) error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	w.file = nil

	backup := w.path + "." + w.rollover.AddDate(0, 0, -7).Format(backupDateLayout)
	if err := w.fs.Rename(w.path, backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotate log file: %w", err)
	}
	w.rollover = nextRollover(now, w.weekday)

	if err := w.open(); err != nil {
		return err
	}
	return w.prune()
}

// prune removes the oldest rotated files beyond the backup limit.
func (w *WeeklyFile) prune() error {
	if w.backups <= 0 {
		return nil
	}
	matches, err := afero.Glob(w.fs, w.path+".*")
	if err != nil {
		return err
	}
	if len(matches) <= w.backups {
		return nil
	}
	slices.Sort(matches)
	for _, m := range matches[:len(matches)-w.backups] {
		if err := w.fs.Remove(m); err != nil {
			return fmt.Errorf("remove old log file: %w", err)
		}
	}
	return nil
}

// nextRollover returns midnight at the start of the first weekday strictly
// after t's day.
func nextRollover(t time.Time, weekday time.Weekday) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	days := (int(weekday) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return midnight.AddDate(0, 0, days)
}
