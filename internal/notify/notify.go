// Package notify tells operators about runs that need attention: unfinished
// days, failed uploads or merges, and a filling disk.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/hours2days/internal/domain"
)

// Sink delivers a rendered message.
type Sink interface {
	Name() string
	Send(ctx context.Context, subject, body string) error
}

// Dispatcher sends run summaries and disk warnings to every sink.
type Dispatcher struct {
	sinks           []Sink
	diskWarnPercent float64
	logger          *slog.Logger
}

// NewDispatcher creates a Dispatcher. With no sinks, Dispatch only logs.
func NewDispatcher(sinks []Sink, diskWarnPercent float64, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sinks: sinks, diskWarnPercent: diskWarnPercent, logger: logger}
}

// Dispatch sends a disk warning when usage is at or above the threshold, and
// a summary when the run is noteworthy. Every sink is attempted; failures are
// logged and returned joined.
func (d *Dispatcher) Dispatch(ctx context.Context, r *domain.RunReport) error {
	var errs []error

	if r.DiskPressure(d.diskWarnPercent) {
		d.logger.Warn("disk usage above threshold",
			"path", r.Disk.Path,
			"used_percent", r.Disk.UsedPercent,
			"threshold", d.diskWarnPercent,
		)
		errs = append(errs, d.send(ctx, DiskSubject(r), RenderDisk(r, d.diskWarnPercent)))
	}
	if r.Noteworthy() {
		errs = append(errs, d.send(ctx, SummarySubject(r), RenderSummary(r)))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) send(ctx context.Context, subject, body string) error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Send(ctx, subject, body); err != nil {
			d.logger.Error("notification failed", "sink", s.Name(), "subject", subject, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		d.logger.Info("notification sent", "sink", s.Name(), "subject", subject)
	}
	return errors.Join(errs...)
}
