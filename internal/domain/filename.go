package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// ContentType identifies the RINEX content family encoded in the last letter
// of the filename extension.
type ContentType byte

const (
	Observation        ContentType = 'o'
	GPSNav             ContentType = 'n'
	GlonassNav         ContentType = 'g'
	CompactObservation ContentType = 'd' // Hatanaka-compressed observation, output only
)

// Families lists the hourly content families in processing order.
var Families = []ContentType{Observation, GPSNav, GlonassNav}

func (t ContentType) String() string {
	switch t {
	case Observation:
		return "observation"
	case GPSNav:
		return "gps-nav"
	case GlonassNav:
		return "glonass-nav"
	case CompactObservation:
		return "compact-observation"
	default:
		return "unknown"
	}
}

// MarshalText encodes the family name, so reports serialise readably.
func (t ContentType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ContentType) UnmarshalText(b []byte) error {
	for _, c := range []ContentType{Observation, GPSNav, GlonassNav, CompactObservation} {
		if c.String() == string(b) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("unknown content type %q", b)
}

const (
	// DailySlot replaces the hour letter in a merged daily filename.
	DailySlot byte = '0'

	// HoursPerDay is the number of hourly parts in a complete day.
	HoursPerDay = 24

	endOfDayHour = HoursPerDay - 1
)

// filenameRe matches SSSSDDDh.yyt.gz: station, day of year, hour slot, year, type.
var filenameRe = regexp.MustCompile(`^([A-Za-z0-9]{4})(\d{3})([a-xA-X0])\.(\d{2})([ongd])\.gz$`)

// ParseError reports a remote filename that does not follow the hourly/daily
// naming convention.
type ParseError struct {
	Name   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse filename %q: %s", e.Name, e.Reason)
}

// FileKey is the structured form of a station data filename.
type FileKey struct {
	Station   string
	DayOfYear int
	Slot      byte // 'a'..'x' or 'A'..'X' for hourly parts, DailySlot for merged days
	Year      int  // two-digit year
	Type      ContentType
}

// GroupKey identifies one station/day run of hourly parts.
type GroupKey struct {
	Station   string
	DayOfYear int
}

func (k GroupKey) String() string {
	return fmt.Sprintf("%s%03d", k.Station, k.DayOfYear)
}

func (k GroupKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *GroupKey) UnmarshalText(b []byte) error {
	s := string(b)
	if len(s) != 7 {
		return fmt.Errorf("invalid group key %q", s)
	}
	doy, err := strconv.Atoi(s[4:])
	if err != nil || doy < 1 || doy > 366 {
		return fmt.Errorf("invalid group key %q", s)
	}
	*k = GroupKey{Station: s[:4], DayOfYear: doy}
	return nil
}

// ParseFilename decodes a remote filename into a FileKey.
func ParseFilename(name string) (FileKey, error) {
	m := filenameRe.FindStringSubmatch(name)
	if m == nil {
		return FileKey{}, &ParseError{Name: name, Reason: "does not match SSSSDDDh.yyt.gz"}
	}

	doy, _ := strconv.Atoi(m[2])
	if doy < 1 || doy > 366 {
		return FileKey{}, &ParseError{Name: name, Reason: fmt.Sprintf("day of year %d out of range", doy)}
	}
	year, _ := strconv.Atoi(m[4])

	key := FileKey{
		Station:   m[1],
		DayOfYear: doy,
		Slot:      m[3][0],
		Year:      year,
		Type:      ContentType(m[5][0]),
	}
	if key.Type == CompactObservation && !key.IsDaily() {
		return FileKey{}, &ParseError{Name: name, Reason: "compact observation files are daily only"}
	}
	return key, nil
}

// IsDaily reports whether the key names a merged daily file.
func (k FileKey) IsDaily() bool {
	return k.Slot == DailySlot
}

// Hour returns the hour of day (0..23) for an hourly part, or -1 for a daily file.
func (k FileKey) Hour() int {
	switch {
	case k.Slot >= 'a' && k.Slot <= 'x':
		return int(k.Slot - 'a')
	case k.Slot >= 'A' && k.Slot <= 'X':
		return int(k.Slot - 'A')
	default:
		return -1
	}
}

// IsEndOfDay reports whether the slot is the last hour of the day.
func (k FileKey) IsEndOfDay() bool {
	return k.Hour() == endOfDayHour
}

// Group returns the station/day key shared by all hourly parts of a day.
func (k FileKey) Group() GroupKey {
	return GroupKey{Station: k.Station, DayOfYear: k.DayOfYear}
}

// Daily returns the key of the merged daily file for this part.
func (k FileKey) Daily() FileKey {
	k.Slot = DailySlot
	return k
}

// WithType returns a copy of the key with a different content type.
func (k FileKey) WithType(t ContentType) FileKey {
	k.Type = t
	return k
}

// Stem is the uncompressed filename, e.g. "ABCD001a.23o".
func (k FileKey) Stem() string {
	return fmt.Sprintf("%s%03d%c.%02d%c", k.Station, k.DayOfYear, k.Slot, k.Year, byte(k.Type))
}

// Format is the inverse of ParseFilename.
func (k FileKey) Format() string {
	return k.Stem() + ".gz"
}

// GroupGlob returns a filepath.Match pattern selecting the uncompressed hourly
// parts of the key's station/day/type.
func GroupGlob(k FileKey) string {
	return fmt.Sprintf("%s%03d[a-xA-X].%02d%c", k.Station, k.DayOfYear, k.Year, byte(k.Type))
}
