package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/couchcryptid/hours2days/internal/domain"
	"github.com/couchcryptid/hours2days/internal/observability"
)

// MergeResult describes the outcome of MergeAndUpload.
type MergeResult struct {
	// Daily is the filename of the compressed daily artifact.
	Daily    string
	Uploaded bool
	// Skipped is set when none of the group's hourly parts were present
	// locally, i.e. the group was already merged by an earlier run.
	Skipped bool
}

// Merger turns a complete group's local hourly parts into one uploaded daily file.
type Merger struct {
	store   LocalStore
	tools   RinexTools
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewMerger creates a Merger.
func NewMerger(store LocalStore, tools RinexTools, logger *slog.Logger, metrics *observability.Metrics) *Merger {
	return &Merger{store: store, tools: tools, logger: logger, metrics: metrics}
}

// MergeAndUpload merges the 24 decompressed parts of g, converts observation
// days to compact RINEX, gzips the result and stores it remotely under the
// daily name. Local hourly parts are removed once the daily file exists.
//
// A *MergeError means nothing was produced. An *UploadError means the daily
// file was produced but is kept in the quarantine directory instead.
func (m *Merger) MergeAndUpload(ctx context.Context, session RemoteSession, g domain.DayGroup) (MergeResult, error) {
	if !g.Complete() {
		return MergeResult{}, &MergeError{Group: g.Key, Step: "parts", Err: errors.New("group is not complete")}
	}

	parts := m.localParts(g)
	if len(parts) == 0 {
		m.logger.Info("no local parts, group already merged", "group", g.Key.String(), "family", g.Type.String())
		return MergeResult{Skipped: true}, nil
	}
	if len(parts) != len(g.Entries) {
		err := fmt.Errorf("%d of %d hourly parts present locally", len(parts), len(g.Entries))
		return MergeResult{}, &MergeError{Group: g.Key, Step: "parts", Err: err}
	}

	artifact, err := m.produce(ctx, g, parts)
	if err != nil {
		return MergeResult{}, err
	}
	m.metrics.DaysMerged.WithLabelValues(g.Type.String()).Inc()

	if _, err := m.store.RemoveMatching(".", domain.GroupGlob(g.Daily())); err != nil {
		m.logger.Warn("remove merged hourly parts failed", "group", g.Key.String(), "error", err)
	}

	res := MergeResult{Daily: artifact}
	if err := m.upload(ctx, session, artifact); err != nil {
		quarantined := filepath.Join(quarantineDir, artifact)
		if mvErr := m.store.Move(artifact, quarantined); mvErr != nil {
			err = errors.Join(err, mvErr)
		}
		m.metrics.UploadFailures.Inc()
		m.logger.Error("upload failed, daily file quarantined",
			"daily", artifact,
			"quarantine", quarantined,
			"error", err,
		)
		return res, &UploadError{Daily: artifact, Quarantined: quarantined, Err: err}
	}

	res.Uploaded = true
	m.metrics.DaysUploaded.WithLabelValues(g.Type.String()).Inc()
	m.logger.Info("daily file uploaded", "daily", artifact, "group", g.Key.String())

	if err := m.store.Remove(artifact); err != nil {
		m.logger.Warn("remove uploaded daily file failed", "daily", artifact, "error", err)
	}
	return res, nil
}

// localParts returns the absolute paths of the group's decompressed parts that
// exist in the work directory, in hour order.
func (m *Merger) localParts(g domain.DayGroup) []string {
	parts := make([]string, 0, len(g.Entries))
	for _, e := range g.Entries {
		rel := e.Key.Stem()
		if m.store.Exists(rel) {
			parts = append(parts, m.store.Path(rel))
		}
	}
	return parts
}

// produce runs the external tools and returns the relative name of the
// gzipped daily artifact.
func (m *Merger) produce(ctx context.Context, g domain.DayGroup, parts []string) (string, error) {
	merged := g.Daily().Stem()
	if err := m.tools.Merge(ctx, parts, m.store.Path(merged)); err != nil {
		return "", &MergeError{Group: g.Key, Step: "merge", Err: err}
	}

	artifact := merged
	if g.Type == domain.Observation {
		out, err := m.tools.Convert(ctx, m.store.Path(merged))
		if err != nil {
			_ = m.store.Remove(merged)
			return "", &MergeError{Group: g.Key, Step: "convert", Err: err}
		}
		if err := m.store.Remove(merged); err != nil {
			m.logger.Warn("remove unconverted daily file failed", "file", merged, "error", err)
		}
		artifact = filepath.Base(out)
	}

	gz, err := m.store.Compress(artifact)
	if err != nil {
		return "", &MergeError{Group: g.Key, Step: "compress", Err: err}
	}
	return gz, nil
}

func (m *Merger) upload(ctx context.Context, session RemoteSession, artifact string) error {
	f, err := m.store.Open(artifact)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := session.Store(ctx, artifact, f); err != nil {
		return &TransportError{Op: "store", Name: artifact, Err: err}
	}
	return nil
}
