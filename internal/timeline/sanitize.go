package timeline

import (
	"time"

	appLog "chronoview/internal/log"
	"chronoview/internal/model"
)

const (
	fallbackStartYear = 2000
	fallbackEndYear   = 2030

	minSaneYear = 1900
	maxSaneYear = 2100

	minSpanYears    = 1
	maxSpanYears    = 100
	resetSpanYears  = 10
	shrinkSpanYears = 50

	zoomOutFactor = 1000
)

// Sanitizer repairs a viewport so that the timeline page never receives a
// non-finite, inverted or degenerate window. The page redraws forever on
// such input; every rule below keeps that state unreachable.
type Sanitizer struct {
	Loc *time.Location
	Log *appLog.Logger
}

// Sanitize returns a repaired copy of v. It is total and idempotent. On
// return:
//
//	min <= start < end <= max
//	1 year <= max-min <= 100 years
//	every bound lies in the years 1900..2100
//	0 < zoomMin < zoomMax, both finite
func (s Sanitizer) Sanitize(v model.Viewport) model.Viewport {
	loc := s.Loc
	if loc == nil {
		loc = time.Local
	}
	lowFallback := model.Millis(time.Date(fallbackStartYear, time.January, 1, 0, 0, 0, 0, loc))
	highFallback := model.Millis(time.Date(fallbackEndYear, time.January, 1, 0, 0, 0, 0, loc))
	floor := model.Millis(time.Date(minSaneYear, time.January, 1, 0, 0, 0, 0, loc))

	out := v
	addYears := func(ms float64, n int) float64 {
		t, _ := model.FromMillis(ms, loc)
		return model.Millis(t.AddDate(n, 0, 0))
	}

	// 1. Finiteness.
	out.Start = s.finite("start", out.Start, lowFallback)
	out.Min = s.finite("min", out.Min, lowFallback)
	out.End = s.finite("end", out.End, highFallback)
	out.Max = s.finite("max", out.Max, highFallback)

	// 2. Extreme years, checked on every bound regardless of step 1.
	out.Start = s.saneYear("start", out.Start, lowFallback, loc)
	out.Min = s.saneYear("min", out.Min, lowFallback, loc)
	out.End = s.saneYear("end", out.End, highFallback, loc)
	out.Max = s.saneYear("max", out.Max, highFallback, loc)

	// 3. Ordering.
	if out.Start >= out.End {
		s.Log.Debug("viewport: start not before end", "start", out.Start, "end", out.End)
		out.End = addYears(out.Start, 1)
	}
	if out.Min >= out.Max {
		s.Log.Debug("viewport: min not before max", "min", out.Min, "max", out.Max)
		out.Min = addYears(out.Max, -resetSpanYears)
	}

	// 4. Span.
	if out.Max < addYears(out.Min, minSpanYears) {
		s.Log.Debug("viewport: span below minimum", "min", out.Min, "max", out.Max)
		out.Min = addYears(out.Max, -resetSpanYears)
	}
	if out.Max > addYears(out.Min, maxSpanYears) {
		s.Log.Debug("viewport: span above maximum", "min", out.Min, "max", out.Max)
		out.Min = addYears(out.Max, -shrinkSpanYears)
	}

	// 5. Zoom limits.
	if !model.IsFinite(out.ZoomMin) || out.ZoomMin <= 0 {
		s.Log.Debug("viewport: zoom min replaced", "zoom_min", out.ZoomMin)
		out.ZoomMin = DefaultZoomMin
	}
	if !model.IsFinite(out.ZoomMax) || out.ZoomMax <= 0 {
		s.Log.Debug("viewport: zoom max replaced", "zoom_max", out.ZoomMax)
		out.ZoomMax = DefaultZoomMax
	}
	if out.ZoomMin >= out.ZoomMax {
		out.ZoomMax = out.ZoomMin * zoomOutFactor
		if !model.IsFinite(out.ZoomMax) {
			out.ZoomMin, out.ZoomMax = DefaultZoomMin, DefaultZoomMax
		}
	}

	// 6. Containment. Keep min at or above the sane floor (a max close to
	// 1900 pushes min below it in steps 3 and 4), then pull start/end inside
	// [min, max] so that a second pass has nothing left to repair.
	if out.Min < floor {
		out.Min = floor
		if out.Max < addYears(out.Min, minSpanYears) {
			out.Max = addYears(out.Min, resetSpanYears)
		}
	}
	if out.Start < out.Min {
		out.Start = out.Min
	}
	if out.End > out.Max {
		out.End = out.Max
	}
	if out.Start > out.Max {
		out.Start = out.Max
	}
	if out.End < out.Min {
		out.End = out.Min
	}
	if out.Start >= out.End {
		s.Log.Debug("viewport: window collapsed after containment", "start", out.Start, "end", out.End)
		out.End = out.Max
		out.Start = addYears(out.Max, -minSpanYears)
		if out.Start < out.Min {
			out.Start = out.Min
		}
	}

	return out
}

func (s Sanitizer) finite(name string, ms, fallback float64) float64 {
	if model.IsFinite(ms) {
		return ms
	}
	s.Log.Debug("viewport: non-finite bound replaced", "bound", name, "value", ms)
	return fallback
}

func (s Sanitizer) saneYear(name string, ms, fallback float64, loc *time.Location) float64 {
	t, ok := model.FromMillis(ms, loc)
	if ok && t.Year() >= minSaneYear && t.Year() <= maxSaneYear {
		return ms
	}
	s.Log.Debug("viewport: extreme year replaced", "bound", name, "value", ms)
	return fallback
}
