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

// Synchronizer applies a group's retention decision to the local archive and
// the drop server.
type Synchronizer struct {
	store   LocalStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSynchronizer creates a Synchronizer.
func NewSynchronizer(store LocalStore, logger *slog.Logger, metrics *observability.Metrics) *Synchronizer {
	return &Synchronizer{store: store, logger: logger, metrics: metrics}
}

// Apply archives the group's local parts when requested, then deletes its
// remote parts. Remote deletion is skipped when archiving fails. Deleting a
// file that is already gone counts as done, so Apply may be repeated.
func (s *Synchronizer) Apply(ctx context.Context, session RemoteSession, g domain.DayGroup, r domain.Retention, report *domain.RunReport) error {
	if r.ArchiveLocal {
		if err := s.archive(g); err != nil {
			return fmt.Errorf("archive %s: %w", g.Key, err)
		}
	}
	if !r.DeleteRemote {
		return nil
	}

	deleted := 0
	var errs []error
	for _, name := range r.RemoteNames {
		err := session.Delete(ctx, name)
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, domain.ErrRemoteNotFound):
			s.logger.Debug("remote part already deleted", "file", name)
		default:
			errs = append(errs, &TransportError{Op: "delete", Name: name, Err: err})
		}
	}

	report.Family(g.Type).RemoteDeleted += deleted
	s.metrics.RemoteDeletes.Add(float64(deleted))
	if deleted > 0 {
		s.logger.Info("remote parts deleted", "group", g.Key.String(), "family", g.Type.String(), "count", deleted)
	}
	return errors.Join(errs...)
}

// archive moves the group's decompressed parts to unfinished/<STATION>/ and
// gzips them there.
func (s *Synchronizer) archive(g domain.DayGroup) error {
	dir := filepath.Join(unfinishedDir, g.Key.Station)
	archived := 0

	for _, e := range g.Entries {
		rel := e.Key.Stem()
		if !s.store.Exists(rel) {
			continue
		}
		dst := filepath.Join(dir, rel)
		if err := s.store.Move(rel, dst); err != nil {
			return err
		}
		if _, err := s.store.Compress(dst); err != nil {
			return err
		}
		archived++
	}

	if _, err := s.store.RemoveMatching(".", domain.GroupGlob(g.Daily())); err != nil {
		return err
	}
	if archived > 0 {
		s.logger.Warn("unfinished day archived",
			"group", g.Key.String(),
			"family", g.Type.String(),
			"parts", archived,
			"dir", dir,
		)
	}
	return nil
}
