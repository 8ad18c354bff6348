package domain

import (
	"cmp"
	"iter"
	"slices"
	"strings"
)

// Verdict is the completion classification of a closed DayGroup.
type Verdict int

const (
	Complete Verdict = iota
	IncompleteInProgress
	IncompleteAbandoned
)

func (v Verdict) String() string {
	return [...]string{"complete", "in_progress", "abandoned"}[v]
}

// HourlyEntry is one listed remote hourly part.
type HourlyEntry struct {
	Key  FileKey
	Name string
}

// DayGroup accumulates the hourly parts of one station/day for one content family.
type DayGroup struct {
	Key     GroupKey
	Type    ContentType
	Year    int
	Entries []HourlyEntry

	// Duplicates holds repeated hour slots (e.g. both "a" and "A"). They do not
	// count toward completeness but are deleted remotely with the group.
	Duplicates []HourlyEntry

	IsToday bool
}

// Complete reports whether the group holds exactly 24 parts ending with the
// end-of-day slot.
func (g DayGroup) Complete() bool {
	if len(g.Entries) != HoursPerDay {
		return false
	}
	return g.Entries[len(g.Entries)-1].Key.IsEndOfDay()
}

// Daily returns the key of the group's merged daily file.
func (g DayGroup) Daily() FileKey {
	return FileKey{
		Station:   g.Key.Station,
		DayOfYear: g.Key.DayOfYear,
		Slot:      DailySlot,
		Year:      g.Year,
		Type:      g.Type,
	}
}

// RemoteNames returns every remote filename belonging to the group.
func (g DayGroup) RemoteNames() []string {
	names := make([]string, 0, len(g.Entries)+len(g.Duplicates))
	for _, e := range g.Entries {
		names = append(names, e.Name)
	}
	for _, e := range g.Duplicates {
		names = append(names, e.Name)
	}
	return names
}

// Partition parses a raw remote listing and splits the hourly parts by content
// family. Names that fail to parse are counted in skipped; merged daily files
// are ignored silently.
func Partition(names []string) (families map[ContentType][]HourlyEntry, skipped int) {
	families = make(map[ContentType][]HourlyEntry, len(Families))
	for _, name := range names {
		key, err := ParseFilename(name)
		if err != nil {
			skipped++
			continue
		}
		if key.IsDaily() {
			continue
		}
		families[key.Type] = append(families[key.Type], HourlyEntry{Key: key, Name: name})
	}
	return families, skipped
}

// SortEntries orders entries so that parts of the same station/day are
// contiguous and ascending by hour. Remote listings carry no ordering
// guarantee, and case-insensitive slots would otherwise sort upper case first.
func SortEntries(entries []HourlyEntry) {
	slices.SortStableFunc(entries, func(a, b HourlyEntry) int {
		return cmp.Or(
			strings.Compare(a.Key.Station, b.Key.Station),
			cmp.Compare(a.Key.DayOfYear, b.Key.DayOfYear),
			cmp.Compare(a.Key.Hour(), b.Key.Hour()),
			strings.Compare(a.Name, b.Name),
		)
	})
}

// Classifier groups one content family's hourly parts into station/day runs.
type Classifier struct {
	// Today is the day of year the run started on.
	Today int
}

// Verdict classifies a closed group.
func (c Classifier) Verdict(g DayGroup) Verdict {
	switch {
	case g.Complete():
		return Complete
	case g.Key.DayOfYear == c.Today:
		return IncompleteInProgress
	default:
		return IncompleteAbandoned
	}
}

// Classify sorts a copy of entries and lazily yields each station/day group
// with its verdict. The last open group is closed explicitly once the input is
// exhausted.
func (c Classifier) Classify(entries []HourlyEntry) iter.Seq2[DayGroup, Verdict] {
	sorted := slices.Clone(entries)
	SortEntries(sorted)

	return func(yield func(DayGroup, Verdict) bool) {
		var current DayGroup
		open := false

		for _, e := range sorted {
			if open && e.Key.Group() == current.Key {
				last := current.Entries[len(current.Entries)-1]
				if last.Key.Hour() == e.Key.Hour() {
					current.Duplicates = append(current.Duplicates, e)
					continue
				}
				current.Entries = append(current.Entries, e)
				continue
			}

			if open && !yield(current, c.Verdict(current)) {
				return
			}
			current = c.newGroup(e)
			open = true
		}

		if open {
			yield(current, c.Verdict(current))
		}
	}
}

func (c Classifier) newGroup(e HourlyEntry) DayGroup {
	return DayGroup{
		Key:     e.Key.Group(),
		Type:    e.Key.Type,
		Year:    e.Key.Year,
		Entries: []HourlyEntry{e},
		IsToday: e.Key.DayOfYear == c.Today,
	}
}
