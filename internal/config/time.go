package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseTimeRef parses an absolute timestamp or a relative duration for the
// --since/--until filters. Relative values are subtracted from the current
// time (e.g. "1h", "30m", "1d2h").
func ParseTimeRef(s string) (time.Time, error) {
	input := strings.TrimSpace(s)
	if input == "" {
		return time.Time{}, fmt.Errorf("time reference is empty")
	}

	if t, err := parseAbsoluteTime(input); err == nil {
		return t, nil
	}

	d, err := parseRelativeDuration(input)
	if err != nil {
		return time.Time{}, err
	}

	return time.Now().Add(-d), nil
}

func parseAbsoluteTime(input string) (time.Time, error) {
	layouts := []string{
		"2006-01-02T15:04:05.0000", // trace header format
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid absolute time: %s", input)
}

// ParseDuration parses a duration in the same format as the relative form of
// ParseTimeRef: standard Go durations plus a "d" unit for days.
func ParseDuration(s string) (time.Duration, error) {
	return parseRelativeDuration(strings.TrimSpace(s))
}

var durationUnitRe = regexp.MustCompile(`(\d+)([dhms])`)

// parseRelativeDuration accepts standard Go durations plus a "d" unit for
// days. The concatenated units must cover the whole input, so "5x2h" is
// rejected instead of being read as "2h".
func parseRelativeDuration(input string) (time.Duration, error) {
	if d, err := time.ParseDuration(input); err == nil {
		return d, nil
	}

	matches := durationUnitRe.FindAllStringSubmatch(input, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid relative duration: %s", input)
	}

	matchedLen := 0
	total := time.Duration(0)
	for _, m := range matches {
		matchedLen += len(m[0])
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid relative duration: %s", input)
		}

		switch m[2] {
		case "d":
			total += 24 * time.Hour * time.Duration(value)
		case "h":
			total += time.Hour * time.Duration(value)
		case "m":
			total += time.Minute * time.Duration(value)
		case "s":
			total += time.Second * time.Duration(value)
		}
	}

	if matchedLen != len(input) {
		return 0, fmt.Errorf("invalid relative duration: %s", input)
	}
	return total, nil
}
