// internal/payload/normalizer_test.go
package payload

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	now := time.Date(2025, 3, 5, 8, 30, 0, 0, loc)

	doc, err := Normalize("27.8 Hours", "13.2", "Completed on Tuesday, March 4th 2025", now)
	require.NoError(t, err)

	want := &Document{
		Generator: Telemetry{
			RuntimeHours:     27.8,
			BatteryVoltage:   13.2,
			LastExerciseDate: "2025-03-04T00:00:00+00:00",
			LastUpdated:      "2025-03-05T08:30:00-06:00",
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeEncodeIsCompact(t *testing.T) {
	now := time.Date(2025, 3, 5, 8, 30, 0, 0, time.UTC)
	doc, err := Normalize("102 Hours", " 12.9 ", "March 4th 2025", now)
	require.NoError(t, err)

	b, err := doc.Encode()
	require.NoError(t, err)
	assert.Equal(t,
		`{"generator":{"runtime_hours":102,"battery_voltage":12.9,"last_exercise_date":"2025-03-04T00:00:00+00:00","last_updated":"2025-03-05T08:30:00+00:00"}}`,
		string(b))
}

func TestNormalizeRuntimeParseFailure(t *testing.T) {
	now := time.Now()
	_, err := Normalize("pending Hours", "13.2", "March 4th 2025", now)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestNormalizeBatteryParseFailure(t *testing.T) {
	_, err := Normalize("27.8 Hours", "low", "March 4th 2025", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestNormalizeDateParseFailure(t *testing.T) {
	_, err := Normalize("27.8 Hours", "13.2", "no exercise on record", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseFuzzyDateVariants(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"Completed on Tuesday, March 4th 2025", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"March 4, 2025", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"Exercised 2025-03-04", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"Completed on December 21st 2024", time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		got, err := parseFuzzyDate(tc.raw)
		require.NoError(t, err, "raw %q", tc.raw)
		assert.True(t, tc.want.Equal(got), "raw %q: got %v", tc.raw, got)
	}
}

func TestParseFuzzyDateRequiresFourDigitYear(t *testing.T) {
	for _, raw := range []string{
		"Completed on Tuesday, March 4th",
		"March 4",
		"Completed on the 4th at 09:30",
	} {
		_, err := parseFuzzyDate(raw)
		require.Error(t, err, "raw %q must not parse into a year-0 timestamp", raw)
	}
}

func TestNormalizeRejectsYearlessExerciseDate(t *testing.T) {
	_, err := Normalize("27.8 Hours", "13.2", "Completed on Tuesday, March 4th", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestStripOrdinal(t *testing.T) {
	assert.Equal(t, "4", stripOrdinal("4th"))
	assert.Equal(t, "21", stripOrdinal("21st"))
	assert.Equal(t, "2", stripOrdinal("2nd"))
	assert.Equal(t, "3", stripOrdinal("3rd"))
	assert.Equal(t, "2025", stripOrdinal("2025"))
}
