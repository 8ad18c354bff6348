package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnfinishedDay is a past station/day that never collected all hourly parts.
type UnfinishedDay struct {
	Key   GroupKey    `json:"key"`
	Type  ContentType `json:"type"`
	Parts int         `json:"parts"`
}

// GroupFailure records a per-group failure that did not abort the run.
type GroupFailure struct {
	Key   GroupKey    `json:"key"`
	Type  ContentType `json:"type"`
	Stage string      `json:"stage"` // fetch, merge, upload, archive, delete
	Error string      `json:"error"`
}

// DiskUsage is a point-in-time sample of local disk utilisation.
type DiskUsage struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

// FamilyStats counts outcomes for one content family.
type FamilyStats struct {
	Groups        int `json:"groups"`
	Complete      int `json:"complete"`
	InProgress    int `json:"in_progress"`
	Abandoned     int `json:"abandoned"`
	Merged        int `json:"merged"`
	Uploaded      int `json:"uploaded"`
	RemoteDeleted int `json:"remote_deleted"`
}

// RunReport accumulates the outcome of one run. It is created at run start,
// filled by the controller and read by the notifiers at the end.
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Year       int       `json:"year"`
	DayOfYear  int       `json:"day_of_year"`

	Families       map[ContentType]*FamilyStats `json:"families"`
	Unfinished     []UnfinishedDay              `json:"unfinished"`
	UploadFailures int                          `json:"upload_failures"`
	Failures       []GroupFailure               `json:"failures"`
	Skipped        int                          `json:"skipped"`
	Disk           *DiskUsage                   `json:"disk,omitempty"`
}

// NewRunReport starts a report for a run beginning at the current clock time.
func NewRunReport() *RunReport {
	now := clock.Now()
	r := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: now,
		Year:      now.Year(),
		DayOfYear: now.YearDay(),
		Families:  make(map[ContentType]*FamilyStats, len(Families)),
	}
	for _, t := range Families {
		r.Families[t] = &FamilyStats{}
	}
	return r
}

// Family returns the stats bucket for t, creating it if needed.
func (r *RunReport) Family(t ContentType) *FamilyStats {
	s, ok := r.Families[t]
	if !ok {
		s = &FamilyStats{}
		r.Families[t] = s
	}
	return s
}

// Count records a classified group.
func (r *RunReport) Count(t ContentType, v Verdict) {
	s := r.Family(t)
	s.Groups++
	switch v {
	case Complete:
		s.Complete++
	case IncompleteInProgress:
		s.InProgress++
	case IncompleteAbandoned:
		s.Abandoned++
	}
}

// AddUnfinished records an abandoned group.
func (r *RunReport) AddUnfinished(g DayGroup) {
	r.Unfinished = append(r.Unfinished, UnfinishedDay{Key: g.Key, Type: g.Type, Parts: len(g.Entries)})
}

// AddFailure records a per-group failure at the given stage.
func (r *RunReport) AddFailure(g DayGroup, stage string, err error) {
	r.Failures = append(r.Failures, GroupFailure{Key: g.Key, Type: g.Type, Stage: stage, Error: err.Error()})
}

// Finish stamps the report's end time.
func (r *RunReport) Finish() {
	r.FinishedAt = clock.Now()
}

// Noteworthy reports whether the run produced anything an operator should be
// told about.
func (r *RunReport) Noteworthy() bool {
	return len(r.Unfinished) > 0 || r.UploadFailures > 0 || len(r.Failures) > 0
}

// DiskPressure reports whether the disk sample is at or above threshold percent.
func (r *RunReport) DiskPressure(threshold float64) bool {
	return r.Disk != nil && r.Disk.UsedPercent >= threshold
}
