package calendar

import (
	"errors"
	"testing"
	"time"

	"chronoview/internal/dateparse"
)

func comps(year, month, day, hour int) dateparse.Components {
	return dateparse.Components{Year: year, Month: month, Day: day, Hour: hour}
}

func TestBuildAcceptsWideYearRange(t *testing.T) {
	for _, year := range []int{-50, 1, 1899, 1900, 1901, 9999} {
		got, err := Build(comps(year, 5, 15, 12), time.UTC)
		if err != nil {
			t.Errorf("year %d: unexpected error %v", year, err)
			continue
		}
		if got.Year() != year || got.Month() != time.June || got.Day() != 15 || got.Hour() != 12 {
			t.Errorf("year %d: unexpected instant %v", year, got)
		}
	}
}

func TestBuildRejectsOutOfRange(t *testing.T) {
	cases := []dateparse.Components{
		comps(0, 0, 1, 0),
		comps(2025, -1, 1, 0),
		comps(2025, 12, 1, 0),
		comps(2025, 0, 0, 0),
		comps(2025, 0, 32, 0),
		comps(2025, 0, 1, -1),
		comps(2025, 0, 1, 24),
		{Year: 2025, Month: 0, Day: 1, Minute: 60},
	}
	for _, c := range cases {
		if _, err := Build(c, time.UTC); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("%+v: expected ErrOutOfRange, got %v", c, err)
		}
	}
}

func TestBuildDoesNotCheckMonthLength(t *testing.T) {
	got, err := Build(comps(2025, 1, 30, 0), time.UTC)
	if err != nil {
		t.Fatalf("expected Feb 30 2025 to be accepted, got %v", err)
	}
	if got.Month() != time.March || got.Day() != 2 {
		t.Errorf("expected roll-over to Mar 2, got %v", got)
	}
}

func TestTokenRejectsImpossibleDate(t *testing.T) {
	if _, err := Build(comps(1850, 1, 30, 0), time.UTC); !errors.Is(err, ErrInvalidInstant) {
		t.Errorf("expected ErrInvalidInstant for Feb 30 1850, got %v", err)
	}
}

func TestStrategyFor(t *testing.T) {
	cases := map[int]bool{
		-1:   false,
		0:    true,
		1:    true,
		1900: true,
		1901: false,
		3000: false,
	}
	for year, token := range cases {
		_, isToken := StrategyFor(year).(Token)
		if isToken != token {
			t.Errorf("year %d: expected token=%v, got %v", year, token, isToken)
		}
	}
}

func TestStrategiesAgreeInsideTokenRange(t *testing.T) {
	for _, year := range []int{1, 99, 1066, 1900} {
		c := dateparse.Components{Year: year, Month: 2, Day: 14, Hour: 9, Minute: 45}
		a, err := Direct{}.Construct(c, time.UTC)
		if err != nil {
			t.Fatalf("direct %d: %v", year, err)
		}
		b, err := Token{}.Construct(c, time.UTC)
		if err != nil {
			t.Fatalf("token %d: %v", year, err)
		}
		if !a.Equal(b) {
			t.Errorf("year %d: direct %v != token %v", year, a, b)
		}
	}
}

func TestBuildUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	got, err := Build(comps(2025, 6, 25, 0), loc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got.Location() != loc {
		t.Errorf("expected location %v, got %v", loc, got.Location())
	}
	if got.UTC().Day() != 24 {
		t.Errorf("expected UTC day 24, got %v", got.UTC())
	}
}
