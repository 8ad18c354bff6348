// Package domain models GNSS station data files and the rules that decide
// when a station's hourly parts can be merged into a daily file.
//
// # Data Source
//
// Reference stations upload one RINEX file per hour to a drop server, into a
// directory per year. Each run lists the current year's directory, groups
// the hourly parts per station and day, and merges complete days.
//
// # Filename Convention
//
//	SSSSDDDh.yyt.gz  →  e.g. "ABCD001a.23o.gz"
//
//	SSSS  4-character station code
//	DDD   day of year, zero padded, 001–366
//	h     hour slot: a=00:00 … x=23:00 (upper case accepted), 0 for a merged day
//	yy    two-digit year
//	t     content type: o=observation, n=GPS navigation, g=GLONASS navigation,
//	      d=Hatanaka-compressed observation (merged output only)
//
// # Completion Rules
//
// Parts are grouped by station and day of year, separately for each content
// type. A group is complete when it holds exactly 24 parts and its last part
// is hour x. An incomplete group whose day is today may still receive parts
// and is left alone; an incomplete group from any other day is abandoned,
// archived locally as unfinished and reported.
//
// Remote listings are sorted explicitly before grouping (see [SortEntries]);
// repeated hour slots are kept apart as duplicates and never count toward
// completeness.
package domain
