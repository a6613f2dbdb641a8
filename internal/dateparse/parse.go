// Package dateparse reads loosely formatted dates by character position.
//
// All non-digit characters are dropped and the remaining digits are cut
// into fixed-width year, month, day, hour and minute fields. "2025-07-25",
// "2025/07/25" and "20250725" therefore parse identically under the
// default widths.
package dateparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chronoview/internal/model"
)

var (
	// ErrParse is wrapped by every parse failure.
	ErrParse = errors.New("dateparse: cannot parse date")

	ErrEmptyInput = fmt.Errorf("%w: empty input", ErrParse)
	ErrNoYear     = fmt.Errorf("%w: no year digits", ErrParse)
	ErrZeroYear   = fmt.Errorf("%w: year is zero", ErrParse)
)

// Config holds the field widths, in digits, used to slice a cleaned date
// string. It is loaded once from settings and not changed afterwards.
type Config struct {
	Year   int `yaml:"year" json:"year"`
	Month  int `yaml:"month" json:"month"`
	Day    int `yaml:"day" json:"day"`
	Hour   int `yaml:"hour" json:"hour"`
	Minute int `yaml:"minute" json:"minute"`
}

// DefaultConfig returns the YYYYMMDDHHmm layout.
func DefaultConfig() Config {
	return Config{Year: 4, Month: 2, Day: 2, Hour: 2, Minute: 2}
}

// Validate reports an error if any width is not positive.
func (c Config) Validate() error {
	widths := []struct {
		name string
		v    int
	}{
		{"year", c.Year},
		{"month", c.Month},
		{"day", c.Day},
		{"hour", c.Hour},
		{"minute", c.Minute},
	}
	for _, w := range widths {
		if w.v <= 0 {
			return fmt.Errorf("dateparse: %s width must be positive, got %d", w.name, w.v)
		}
	}
	return nil
}

// Components is the typed result of Parse. Month is 0-indexed.
type Components struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int

	Original   string
	Normalized string
	Readable   string
}

// Parse slices raw according to cfg.
//
// When isEnd is set, typ is not a point, and raw carries nothing finer than
// a year, the result is moved to the first instant of the following year so
// that "2025" as an end date covers the whole of 2025. Any month, day, hour
// or minute digits disable that inference.
func Parse(raw string, cfg Config, isEnd bool, typ model.ItemType) (Components, error) {
	if strings.TrimSpace(raw) == "" {
		return Components{}, ErrEmptyInput
	}

	digits := stripNonDigits(raw)
	pos := 0
	next := func(width int) string {
		if width <= 0 || pos >= len(digits) {
			return ""
		}
		end := pos + width
		if end > len(digits) {
			end = len(digits)
		}
		s := digits[pos:end]
		pos = end
		return s
	}

	yearStr := next(cfg.Year)
	monthStr := next(cfg.Month)
	dayStr := next(cfg.Day)
	hourStr := next(cfg.Hour)
	minuteStr := next(cfg.Minute)

	if yearStr == "" {
		return Components{}, ErrNoYear
	}
	year := atoi(yearStr)
	if year == 0 {
		return Components{}, ErrZeroYear
	}

	c := Components{
		Year:     year,
		Month:    0,
		Day:      1,
		Original: raw,
	}
	if monthStr != "" {
		c.Month = atoi(monthStr) - 1
	}
	if dayStr != "" {
		c.Day = atoi(dayStr)
	}
	if hourStr != "" {
		c.Hour = atoi(hourStr)
	}
	if minuteStr != "" {
		c.Minute = atoi(minuteStr)
	}

	yearOnly := monthStr == "" && dayStr == "" && hourStr == "" && minuteStr == ""
	if isEnd && typ != model.TypePoint && yearOnly {
		c = Components{Year: year + 1, Month: 0, Day: 1, Original: raw}
	}

	c.Normalized = c.normalized()
	c.Readable = c.readable()
	return c, nil
}

// normalized renders YYYY-MM-DDTHH:mm with every unit present.
func (c Components) normalized() string {
	return fmt.Sprintf("%s-%02d-%02dT%02d:%02d", formatYear(c.Year), c.Month+1, c.Day, c.Hour, c.Minute)
}

// readable renders the same units but drops trailing ones that hold their
// default value, so 2025-01-01 00:00 reads as "2025".
func (c Components) readable() string {
	units := 1
	switch {
	case c.Minute != 0:
		units = 5
	case c.Hour != 0:
		units = 4
	case c.Day != 1:
		units = 3
	case c.Month != 0:
		units = 2
	}

	s := formatYear(c.Year)
	if units >= 2 {
		s += fmt.Sprintf("-%02d", c.Month+1)
	}
	if units >= 3 {
		s += fmt.Sprintf("-%02d", c.Day)
	}
	if units >= 4 {
		s += fmt.Sprintf(" %02d:%02d", c.Hour, c.Minute)
	}
	return s
}

func formatYear(y int) string {
	if y < 0 {
		return fmt.Sprintf("-%04d", -y)
	}
	return fmt.Sprintf("%04d", y)
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// atoi parses a digit-only slice. Overlong slices saturate rather than
// fail; the calendar builder rejects the out-of-range value afterwards.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// Encode writes t as a digit string laid out by cfg, so that
// Parse(Encode(t, cfg), cfg, ...) yields t's fields back. Fields wider than
// their width are not truncated.
func Encode(t time.Time, cfg Config) string {
	return fmt.Sprintf("%0*d%0*d%0*d%0*d%0*d",
		cfg.Year, t.Year(),
		cfg.Month, int(t.Month()),
		cfg.Day, t.Day(),
		cfg.Hour, t.Hour(),
		cfg.Minute, t.Minute(),
	)
}
