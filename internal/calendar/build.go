// Package calendar turns parsed date components into absolute instants.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"

	"chronoview/internal/dateparse"
)

var (
	ErrOutOfRange     = errors.New("calendar: component out of range")
	ErrInvalidInstant = errors.New("calendar: invalid instant")
)

// tokenPattern is the strftime form of the YYYY-MM-DD-HH token.
const tokenPattern = "%Y-%m-%d-%H"

// tokenBoundary is the last year routed through the Token strategy.
const tokenBoundary = 1900

// Strategy constructs an instant from components that already passed the
// bounds check.
type Strategy interface {
	Construct(c dateparse.Components, loc *time.Location) (time.Time, error)
}

// Direct builds the instant with time.Date. Out-of-month days roll over
// into the next month (Feb 30 becomes Mar 2).
type Direct struct{}

func (Direct) Construct(c dateparse.Components, loc *time.Location) (time.Time, error) {
	return time.Date(c.Year, time.Month(c.Month+1), c.Day, c.Hour, c.Minute, 0, 0, loc), nil
}

// Token formats the components as a zero-padded YYYY-MM-DD-HH token and
// reads it back through a strftime pattern. Years 0..1900 go this way so
// that a two-digit or zero year is never taken as an offset from another
// epoch. The token reader rejects impossible dates such as Feb 30.
type Token struct{}

func (Token) Construct(c dateparse.Components, loc *time.Location) (time.Time, error) {
	if c.Year < 0 || c.Year > 9999 {
		return time.Time{}, fmt.Errorf("%w: year %d does not fit a token", ErrInvalidInstant, c.Year)
	}
	layout, err := strftime.Layout(tokenPattern)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInstant, err)
	}
	token := fmt.Sprintf("%04d-%02d-%02d-%02d", c.Year, c.Month+1, c.Day, c.Hour)
	t, err := time.ParseInLocation(layout, token, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: token %q: %v", ErrInvalidInstant, token, err)
	}
	return t.Add(time.Duration(c.Minute) * time.Minute), nil
}

// StrategyFor picks the construction strategy for a year.
func StrategyFor(year int) Strategy {
	if UsesToken(year) {
		return Token{}
	}
	return Direct{}
}

// UsesToken reports whether year falls in the range built via Token.
func UsesToken(year int) bool {
	return year >= 0 && year <= tokenBoundary
}

// Build validates component bounds and constructs the instant in loc
// (time.Local when nil). The bounds check tests days against 1..31 only.
// What happens to a day past the end of its month depends on the strategy:
// for years 0..1900 the Token strategy rejects it with ErrInvalidInstant
// (Feb 30 1850 fails), for every other year Direct rolls it over into the
// next month (Feb 30 2021 becomes Mar 2).
func Build(c dateparse.Components, loc *time.Location) (time.Time, error) {
	if err := checkBounds(c); err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.Local
	}

	t, err := StrategyFor(c.Year).Construct(c, loc)
	if err != nil {
		return time.Time{}, err
	}
	// Guard against year overflow wrapping the instant somewhere unrelated.
	if y := t.Year(); y < c.Year-1 || y > c.Year+1 {
		return time.Time{}, fmt.Errorf("%w: year %d built as %d", ErrInvalidInstant, c.Year, y)
	}
	return t, nil
}

func checkBounds(c dateparse.Components) error {
	switch {
	case c.Year == 0:
		return fmt.Errorf("%w: year 0", ErrOutOfRange)
	case c.Month < 0 || c.Month > 11:
		return fmt.Errorf("%w: month %d", ErrOutOfRange, c.Month)
	case c.Day < 1 || c.Day > 31:
		return fmt.Errorf("%w: day %d", ErrOutOfRange, c.Day)
	case c.Hour < 0 || c.Hour > 23:
		return fmt.Errorf("%w: hour %d", ErrOutOfRange, c.Hour)
	case c.Minute < 0 || c.Minute > 59:
		return fmt.Errorf("%w: minute %d", ErrOutOfRange, c.Minute)
	}
	return nil
}
