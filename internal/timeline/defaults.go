package timeline

import (
	"strconv"
	"strings"
	"time"

	"chronoview/internal/calendar"
	"chronoview/internal/dateparse"
	appLog "chronoview/internal/log"
	"chronoview/internal/model"
)

const (
	// DefaultZoomMin is the smallest visible span in milliseconds.
	DefaultZoomMin = 10
	// DefaultZoomMax is the largest visible span (10,000 years) in milliseconds.
	DefaultZoomMax = 315360000000000

	visibleYears = 50
	visibleFloor = 1900
	boundYears   = 100
	boundFloor   = 1800
)

// Settings is the part of the application config the render core reads.
type Settings struct {
	DateFormat    dateparse.Config
	Tags          []string
	CaseSensitive bool
}

// TagConfig tells event sources which tags mark an event for the timeline.
type TagConfig struct {
	Tags          []string `json:"tags"`
	CaseSensitive bool     `json:"case_sensitive"`
}

// Matches reports whether ev carries one of the configured tags. An empty
// tag list matches everything.
func (tc TagConfig) Matches(ev model.RawEvent) bool {
	if len(tc.Tags) == 0 {
		return true
	}
	for _, want := range tc.Tags {
		want = strings.TrimPrefix(strings.TrimSpace(want), "#")
		for _, have := range ev.Tags {
			have = strings.TrimPrefix(strings.TrimSpace(have), "#")
			if tc.CaseSensitive && have == want {
				return true
			}
			if !tc.CaseSensitive && strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// Defaults is the static fallback handed to the render pass.
type Defaults struct {
	Viewport model.Viewport
	Tags     TagConfig
}

// BuildDefaults derives the static viewport from the current year. The
// pannable span must stay bounded; the timeline page derives zoom steps
// from it.
//
// Every bound is produced by the same parse+build pipeline as event dates;
// if that fails for a bound, a plain January 1st in loc is used instead.
func BuildDefaults(s Settings, now time.Time, loc *time.Location, logger *appLog.Logger) Defaults {
	if loc == nil {
		loc = time.Local
	}
	year := now.In(loc).Year()

	bound := func(y int) float64 {
		return model.Millis(yearStart(y, s.DateFormat, loc, logger))
	}

	vp := model.Viewport{
		Start:   bound(max(year-visibleYears, visibleFloor)),
		End:     bound(year + visibleYears),
		Min:     bound(max(year-boundYears, boundFloor)),
		Max:     bound(year + boundYears),
		ZoomMin: DefaultZoomMin,
		// The page compares zoomMax with a strict inequality, so the limit
		// sits one unit above the nominal ceiling.
		ZoomMax: DefaultZoomMax + 1,
	}

	return Defaults{
		Viewport: vp,
		Tags: TagConfig{
			Tags:          append([]string(nil), s.Tags...),
			CaseSensitive: s.CaseSensitive,
		},
	}
}

func yearStart(year int, cfg dateparse.Config, loc *time.Location, logger *appLog.Logger) time.Time {
	c, err := dateparse.Parse(strconv.Itoa(year), cfg, false, model.TypeBox)
	if err == nil {
		t, berr := calendar.Build(c, loc)
		if berr == nil {
			return t
		}
		err = berr
	}
	logger.Debug("default bound fell back to direct construction", "year", year, "err", err)
	return time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
}
