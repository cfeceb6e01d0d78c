// internal/payload/normalizer.go
// Normalization of the raw scraped strings into the compact telemetry
// document. Parsing is strict: a reading that cannot be normalized fails the
// whole run, because a partially filled document would silently poison the
// downstream automations consuming the topic.
package payload

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrParse marks a raw reading that could not be normalized.
var ErrParse = errors.New("telemetry parse failure")

// isoOffsetLayout renders the numeric offset form ("+00:00") for both the
// UTC exercise date and the local-offset update stamp.
const isoOffsetLayout = "2006-01-02T15:04:05-07:00"

// Document is the single telemetry payload produced per run.
type Document struct {
	Generator Telemetry `json:"generator"`
}

// Telemetry holds the normalized generator readings.
type Telemetry struct {
	RuntimeHours     float64 `json:"runtime_hours"`
	BatteryVoltage   float64 `json:"battery_voltage"`
	LastExerciseDate string  `json:"last_exercise_date"`
	LastUpdated      string  `json:"last_updated"`
}

// Normalize converts the three raw portal strings into a Document stamped
// with now (in its own location) as last_updated.
func Normalize(runtimeRaw, batteryRaw, exerciseRaw string, now time.Time) (*Document, error) {
	hours, err := parseLeadingFloat(runtimeRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: runtime_hours from %q: %v", ErrParse, runtimeRaw, err)
	}

	volts, err := strconv.ParseFloat(strings.TrimSpace(batteryRaw), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: battery_voltage from %q: %v", ErrParse, batteryRaw, err)
	}

	exercised, err := parseFuzzyDate(exerciseRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: last_exercise_date from %q: %v", ErrParse, exerciseRaw, err)
	}

	return &Document{
		Generator: Telemetry{
			RuntimeHours:     hours,
			BatteryVoltage:   volts,
			LastExerciseDate: exercised.UTC().Format(isoOffsetLayout),
			LastUpdated:      now.Format(isoOffsetLayout),
		},
	}, nil
}

// Encode renders the document as one compact JSON line without a trailing
// newline.
func (d *Document) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// parseLeadingFloat reads the first whitespace-separated token as a float,
// tolerating a trailing unit word ("27.8 Hours").
func parseLeadingFloat(raw string) (float64, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(fields[0], 64)
}

// monthNames recognizes English month tokens, full or abbreviated, during
// the fuzzy pre-pass.
var monthNames = map[string]bool{
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "sept": true, "oct": true,
	"nov": true, "dec": true,
}

var ordinalSuffixes = []string{"st", "nd", "rd", "th"}

// yearToken matches a standalone 4-digit run inside a token ("2025",
// "2025-03-04"), rejecting longer digit runs.
var yearToken = regexp.MustCompile(`(^|\D)\d{4}(\D|$)`)

// parseFuzzyDate extracts a calendar date from free-running prose such as
// "Completed on Tuesday, March 4th 2025". Tokens that carry no date
// information (filler words, weekday names) are discarded, ordinal suffixes
// are stripped, and the residue is handed to dateparse. A timestamp with no
// zone information is taken as UTC.
func parseFuzzyDate(raw string) (time.Time, error) {
	var kept []string
	for _, tok := range strings.Fields(raw) {
		tok = strings.Trim(tok, ",.;:()")
		if tok == "" {
			continue
		}
		lower := strings.ToLower(tok)
		switch {
		case monthNames[lower]:
			kept = append(kept, tok)
		case strings.ContainsAny(tok, "0123456789"):
			kept = append(kept, stripOrdinal(tok))
		}
	}
	if len(kept) == 0 {
		return time.Time{}, errors.New("no date tokens found")
	}

	// Without an explicit year the parser would fill in year 0 and produce
	// a plausible-but-wrong timestamp, so a 4-digit year is required among
	// the date tokens themselves.
	hasYear := false
	for _, tok := range kept {
		if yearToken.MatchString(tok) {
			hasYear = true
			break
		}
	}
	if !hasYear {
		return time.Time{}, fmt.Errorf("no 4-digit year in date tokens %q", kept)
	}

	candidate := strings.Join(kept, " ")
	// "March 4 2025" reads better for the parser as "March 4, 2025".
	if len(kept) == 3 && monthNames[strings.ToLower(kept[0])] && len(kept[2]) == 4 {
		candidate = fmt.Sprintf("%s %s, %s", kept[0], kept[1], kept[2])
	}

	t, err := dateparse.ParseIn(candidate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q: %w", candidate, err)
	}
	return t, nil
}

// stripOrdinal turns "4th" into "4", leaving non-ordinal tokens untouched.
func stripOrdinal(tok string) string {
	lower := strings.ToLower(tok)
	for _, suf := range ordinalSuffixes {
		trimmed := strings.TrimSuffix(lower, suf)
		if trimmed != lower && trimmed != "" && !strings.ContainsAny(trimmed, "abcdefghijklmnopqrstuvwxyz") {
			return tok[:len(trimmed)]
		}
	}
	return tok
}
