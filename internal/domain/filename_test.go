package domain

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHourly = "ABCD001a.23o.gz"

func TestParseFilename(t *testing.T) {
	key, err := ParseFilename(testHourly)
	require.NoError(t, err)

	assert.Equal(t, "ABCD", key.Station)
	assert.Equal(t, 1, key.DayOfYear)
	assert.Equal(t, byte('a'), key.Slot)
	assert.Equal(t, 23, key.Year)
	assert.Equal(t, Observation, key.Type)
	assert.Equal(t, 0, key.Hour())
	assert.False(t, key.IsDaily())
	assert.Equal(t, GroupKey{Station: "ABCD", DayOfYear: 1}, key.Group())
}

func TestParseFilename_SlotsAndTypes(t *testing.T) {
	tests := []struct {
		name      string
		hour      int
		endOfDay  bool
		daily     bool
		wantType  ContentType
		wantGroup string
	}{
		{name: "ABCD001x.23o.gz", hour: 23, endOfDay: true, wantType: Observation, wantGroup: "ABCD001"},
		{name: "ABCD001X.23o.gz", hour: 23, endOfDay: true, wantType: Observation, wantGroup: "ABCD001"},
		{name: "abcd120M.24n.gz", hour: 12, wantType: GPSNav, wantGroup: "abcd120"},
		{name: "BUDP366k.24g.gz", hour: 10, wantType: GlonassNav, wantGroup: "BUDP366"},
		{name: "ABCD0010.23o.gz", hour: -1, daily: true, wantType: Observation, wantGroup: "ABCD001"},
		{name: "ABCD0010.23d.gz", hour: -1, daily: true, wantType: CompactObservation, wantGroup: "ABCD001"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			key, err := ParseFilename(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.hour, key.Hour())
			assert.Equal(t, tc.endOfDay, key.IsEndOfDay())
			assert.Equal(t, tc.daily, key.IsDaily())
			assert.Equal(t, tc.wantType, key.Type)
			assert.Equal(t, tc.wantGroup, key.Group().String())
		})
	}
}

func TestParseFilename_Invalid(t *testing.T) {
	names := []string{
		"",
		"ABCD001a.23o",      // missing .gz
		"ABCD001y.23o.gz",   // hour slot past x
		"ABCD001a.23p.gz",   // unknown type
		"ABC001a.23o.gz",    // short station
		"ABCD01a.23o.gz",    // short day
		"ABCD000a.23o.gz",   // day zero
		"ABCD367a.23o.gz",   // day past 366
		"ABCD001a.23d.gz",   // hourly compact observation
		"ABCD001a.2023o.gz", // four-digit year
		"testtest.000.gz",
		"README.txt",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFilename(name)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, name, pe.Name)
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	var names []string
	for _, station := range []string{"ABCD", "abcd", "B0R1"} {
		for _, slot := range "aAkKxX0" {
			for _, typ := range "ong" {
				names = append(names, station+"042"+string(slot)+".23"+string(typ)+".gz")
			}
		}
	}
	names = append(names, "ABCD0010.23d.gz", "ZZZZ366x.05g.gz")

	for _, name := range names {
		key, err := ParseFilename(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, key.Format())
	}
}

func TestFileKey_DailyAndStem(t *testing.T) {
	key, err := ParseFilename("ABCD001x.23o.gz")
	require.NoError(t, err)

	daily := key.Daily()
	assert.Equal(t, "ABCD0010.23o.gz", daily.Format())
	assert.Equal(t, "ABCD0010.23o", daily.Stem())
	assert.Equal(t, "ABCD0010.23d.gz", daily.WithType(CompactObservation).Format())
	assert.Equal(t, "ABCD001x.23o", key.Stem())
}

func TestGroupGlob(t *testing.T) {
	key, err := ParseFilename("ABCD001a.23n.gz")
	require.NoError(t, err)
	pattern := GroupGlob(key)

	for _, name := range []string{"ABCD001a.23n", "ABCD001X.23n", "ABCD001k.23n"} {
		ok, err := filepath.Match(pattern, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	for _, name := range []string{"ABCD0010.23n", "ABCD002a.23n", "ABCD001a.23o", "ABCD001a.23n.gz", "ABCD001y.23n"} {
		ok, err := filepath.Match(pattern, name)
		require.NoError(t, err)
		assert.False(t, ok, name)
	}
}

func TestContentType_String(t *testing.T) {
	assert.Equal(t, "observation", Observation.String())
	assert.Equal(t, "gps-nav", GPSNav.String())
	assert.Equal(t, "glonass-nav", GlonassNav.String())
	assert.Equal(t, "unknown", ContentType('z').String())
}

func TestTextRoundTrip(t *testing.T) {
	var ct ContentType
	require.NoError(t, ct.UnmarshalText([]byte("glonass-nav")))
	assert.Equal(t, GlonassNav, ct)
	require.Error(t, ct.UnmarshalText([]byte("sp3")))

	var k GroupKey
	require.NoError(t, k.UnmarshalText([]byte("ABCD049")))
	assert.Equal(t, GroupKey{Station: "ABCD", DayOfYear: 49}, k)
	require.Error(t, k.UnmarshalText([]byte("ABCD")))
	require.Error(t, k.UnmarshalText([]byte("ABCD400")))
}
