package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDuration = errors.New("invalid duration")

// Unit maps an interval suffix to its length. Tables keep multi-character
// suffixes first so "mo" never matches as "m".
type Unit struct {
	Suffix string
	Size   time.Duration
}

type UnitTable []Unit

var (
	// CountdownUnits is the table used by the countdown command. Years
	// count as 365 days and months as 30, matching the rendered output.
	CountdownUnits = UnitTable{
		{"mo", 30 * 24 * time.Hour},
		{"y", 365 * 24 * time.Hour},
		{"d", 24 * time.Hour},
		{"h", time.Hour},
		{"m", time.Minute},
		{"s", time.Second},
	}

	// DropUnits is the table used by the mystery box interval option.
	DropUnits = UnitTable{
		{"w", 7 * 24 * time.Hour},
		{"d", 24 * time.Hour},
		{"h", time.Hour},
		{"m", time.Minute},
		{"s", time.Second},
	}
)

func (t UnitTable) pattern() *regexp.Regexp {
	suffixes := make([]string, 0, len(t))
	for _, u := range t {
		suffixes = append(suffixes, u.Suffix)
	}
	return regexp.MustCompile(`(?i)(\d+)\s*(` + strings.Join(suffixes, "|") + `)`)
}

func (t UnitTable) size(suffix string) time.Duration {
	for _, u := range t {
		if u.Suffix == suffix {
			return u.Size
		}
	}
	return 0
}

// ParseDuration scans s for repeated "<integer><unit>" tokens against the
// given unit table and accumulates them into a total duration. Text that
// matches no token is ignored. It fails when no token matches at all or
// when the total is below min.
func ParseDuration(s string, table UnitTable, min time.Duration) (time.Duration, error) {
	matches := table.pattern().FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: no time tokens in %q", ErrInvalidDuration, s)
	}

	var total time.Duration
	for _, m := range matches {
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, m[1])
		}
		total += time.Duration(value) * table.size(strings.ToLower(m[2]))
	}

	if total < min {
		return 0, fmt.Errorf("%w: %s is below the %s minimum", ErrInvalidDuration, FormatDuration(total), FormatDuration(min))
	}
	return total, nil
}

// FormatDuration renders a duration the way drop and countdown messages
// show it: "1 day, 2 hours, 5 seconds". Negative durations render as
// "0 seconds".
func FormatDuration(d time.Duration) string {
	totalSeconds := int64(d / time.Second)
	if totalSeconds < 0 {
		totalSeconds = 0
	}

	seconds := totalSeconds % 60
	minutes := (totalSeconds / 60) % 60
	hours := (totalSeconds / 3600) % 24
	totalDays := totalSeconds / 86400
	years := totalDays / 365
	days := totalDays % 365

	var parts []string
	if years > 0 {
		parts = append(parts, plural(years, "year"))
	}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	return strings.Join(parts, ", ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
