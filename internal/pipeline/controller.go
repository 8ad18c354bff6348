package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/hours2days/internal/domain"
	"github.com/couchcryptid/hours2days/internal/observability"
)

// Local directories under the work directory.
const (
	savedDir      = "saved"
	unfinishedDir = "unfinished"
	quarantineDir = "saveddays"
)

// sweepPatterns select the temporary files left at the top level of the work
// directory: decompressed parts and dailies, then any remaining archives.
var sweepPatterns = []string{"*[0-9][odgn]", "*[0-9][odgnP].gz"}

// Options configures a Controller.
type Options struct {
	// RemotePath is the drop server directory holding one subdirectory per year.
	RemotePath string

	Opener  SessionOpener
	Store   LocalStore
	Tools   RinexTools
	Disk    DiskSampler // optional
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Controller runs one complete merge pass.
type Controller struct {
	remotePath string
	opener     SessionOpener
	store      LocalStore
	merger     *Merger
	sync       *Synchronizer
	disk       DiskSampler
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewController creates a Controller from opts.
func NewController(opts Options) *Controller {
	return &Controller{
		remotePath: opts.RemotePath,
		opener:     opts.Opener,
		store:      opts.Store,
		merger:     NewMerger(opts.Store, opts.Tools, opts.Logger, opts.Metrics),
		sync:       NewSynchronizer(opts.Store, opts.Logger, opts.Metrics),
		disk:       opts.Disk,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Run lists the current year's directory on the drop server and processes
// every station/day group of every content family. Per-group failures are
// recorded in the report and do not stop the run; an error is returned only
// when the remote session cannot be set up or ctx is cancelled.
func (c *Controller) Run(ctx context.Context) (*domain.RunReport, error) {
	start := time.Now()
	report := domain.NewRunReport()
	c.logger.Info("run started",
		"run_id", report.RunID,
		"year", report.Year,
		"day_of_year", report.DayOfYear,
	)

	session, err := c.opener.Open(ctx)
	if err != nil {
		return report, &TransportError{Op: "connect", Err: err}
	}
	defer c.closeSession(session)

	names, err := c.list(ctx, session, report.Year)
	if err != nil {
		return report, err
	}

	families, skipped := domain.Partition(names)
	report.Skipped = skipped
	c.metrics.FilesSkipped.Add(float64(skipped))
	if skipped > 0 {
		c.logger.Warn("skipped files not following the naming convention", "count", skipped)
	}

	classifier := domain.Classifier{Today: report.DayOfYear}
	for _, t := range domain.Families {
		c.logger.Debug("processing family", "family", t.String(), "parts", len(families[t]))
		for g, v := range classifier.Classify(families[t]) {
			if ctx.Err() != nil {
				break
			}
			c.processGroup(ctx, session, g, v, report)
		}
	}

	c.sweep()
	c.sampleDisk(ctx, report)
	report.Finish()

	c.metrics.RunDuration.Set(time.Since(start).Seconds())
	c.metrics.LastRunTimestamp.Set(float64(report.FinishedAt.Unix()))
	c.logger.Info("run finished",
		"run_id", report.RunID,
		"unfinished", len(report.Unfinished),
		"upload_failures", report.UploadFailures,
		"failures", len(report.Failures),
		"skipped", report.Skipped,
		"duration", time.Since(start),
	)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run interrupted: %w", err)
	}
	return report, nil
}

// PlannedGroup is one classified group and what a run would do with it.
type PlannedGroup struct {
	Group     domain.DayGroup
	Verdict   domain.Verdict
	Retention domain.Retention
}

// Plan lists and classifies the current year's directory without fetching,
// merging or deleting anything. It returns the groups in processing order and
// the number of skipped names.
func (c *Controller) Plan(ctx context.Context) ([]PlannedGroup, int, error) {
	now := domain.Now()

	session, err := c.opener.Open(ctx)
	if err != nil {
		return nil, 0, &TransportError{Op: "connect", Err: err}
	}
	defer c.closeSession(session)

	names, err := c.list(ctx, session, now.Year())
	if err != nil {
		return nil, 0, err
	}

	families, skipped := domain.Partition(names)
	classifier := domain.Classifier{Today: now.YearDay()}

	var plan []PlannedGroup
	for _, t := range domain.Families {
		for g, v := range classifier.Classify(families[t]) {
			plan = append(plan, PlannedGroup{Group: g, Verdict: v, Retention: domain.Reconcile(g, v)})
		}
	}
	return plan, skipped, nil
}

// RemoteDir is the drop server directory for year.
func (c *Controller) RemoteDir(year int) string {
	return path.Join(c.remotePath, strconv.Itoa(year))
}

func (c *Controller) list(ctx context.Context, session RemoteSession, year int) ([]string, error) {
	dir := c.RemoteDir(year)
	if err := session.ChangeDir(ctx, dir); err != nil {
		return nil, &TransportError{Op: "cwd", Name: dir, Err: err}
	}
	names, err := session.List(ctx)
	if err != nil {
		return nil, &TransportError{Op: "list", Name: dir, Err: err}
	}
	c.logger.Info("remote directory listed", "dir", dir, "files", len(names))
	return names, nil
}

func (c *Controller) closeSession(session RemoteSession) {
	if err := session.Close(); err != nil {
		c.logger.Warn("close remote session failed", "error", err)
	}
}

func (c *Controller) processGroup(ctx context.Context, session RemoteSession, g domain.DayGroup, v domain.Verdict, report *domain.RunReport) {
	report.Count(g.Type, v)
	c.metrics.GroupsClassified.WithLabelValues(g.Type.String(), v.String()).Inc()
	log := c.logger.With("group", g.Key.String(), "family", g.Type.String(), "parts", len(g.Entries))

	switch v {
	case domain.IncompleteInProgress:
		log.Info("day still collecting, left in place")
		return
	case domain.IncompleteAbandoned:
		report.AddUnfinished(g)
		log.Warn("day is unfinished")
	}

	if err := c.fetch(ctx, session, g); err != nil {
		c.fail(report, g, StageFetch, err)
		return
	}

	if v == domain.Complete {
		res, err := c.merger.MergeAndUpload(ctx, session, g)
		var uploadErr *UploadError
		stats := report.Family(g.Type)
		switch {
		case errors.As(err, &uploadErr):
			stats.Merged++
			report.UploadFailures++
			c.fail(report, g, StageUpload, err)
		case err != nil:
			c.fail(report, g, StageMerge, err)
			return
		case res.Skipped:
		default:
			stats.Merged++
			stats.Uploaded++
		}
	}

	if err := c.sync.Apply(ctx, session, g, domain.Reconcile(g, v), report); err != nil {
		stage := StageArchive
		var te *TransportError
		if errors.As(err, &te) {
			stage = StageDelete
		}
		c.fail(report, g, stage, err)
	}
}

// fetch downloads every part of g, keeps the compressed copy in
// saved/<STATION>/ and decompresses the counted parts into the work directory.
// Duplicate hour slots are archived but not decompressed.
func (c *Controller) fetch(ctx context.Context, session RemoteSession, g domain.DayGroup) error {
	for _, e := range g.Entries {
		if err := c.fetchPart(ctx, session, e, true); err != nil {
			return err
		}
	}
	for _, e := range g.Duplicates {
		if err := c.fetchPart(ctx, session, e, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) fetchPart(ctx context.Context, session RemoteSession, e domain.HourlyEntry, unpack bool) error {
	w, err := c.store.Create(e.Name)
	if err != nil {
		return err
	}
	fetchErr := session.Fetch(ctx, e.Name, w)
	closeErr := w.Close()
	if fetchErr != nil {
		_ = c.store.Remove(e.Name)
		return &TransportError{Op: "fetch", Name: e.Name, Err: fetchErr}
	}
	if closeErr != nil {
		return fmt.Errorf("write %s: %w", e.Name, closeErr)
	}
	c.metrics.PartsFetched.WithLabelValues(e.Key.Type.String()).Inc()

	if err := c.store.Copy(e.Name, filepath.Join(savedDir, e.Key.Station, e.Name)); err != nil {
		return err
	}
	if !unpack {
		return c.store.Remove(e.Name)
	}
	_, err = c.store.Decompress(e.Name)
	return err
}

func (c *Controller) fail(report *domain.RunReport, g domain.DayGroup, stage string, err error) {
	report.AddFailure(g, stage, err)
	c.metrics.GroupFailures.WithLabelValues(stage).Inc()
	c.logger.Error("group failed",
		"group", g.Key.String(),
		"family", g.Type.String(),
		"stage", stage,
		"error", err,
	)
}

// sweep removes temporary files from the top level of the work directory.
func (c *Controller) sweep() {
	total := 0
	for _, pattern := range sweepPatterns {
		n, err := c.store.RemoveMatching(".", pattern)
		total += n
		if err != nil {
			c.logger.Warn("sweep work directory failed", "pattern", pattern, "error", err)
		}
	}
	c.metrics.FilesSwept.Add(float64(total))
	c.logger.Debug("work directory swept", "removed", total)
}

func (c *Controller) sampleDisk(ctx context.Context, report *domain.RunReport) {
	if c.disk == nil {
		return
	}
	usage, err := c.disk.Sample(ctx)
	if err != nil {
		c.logger.Warn("sample disk usage failed", "error", err)
		return
	}
	report.Disk = &usage
	c.metrics.DiskUsedPercent.Set(usage.UsedPercent)
}
