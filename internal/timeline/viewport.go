package timeline

import (
	"time"

	"chronoview/internal/model"
)

const (
	// visiblePadding is the share of the event span added on each side of
	// the visible window.
	visiblePadding = 0.2
	// boundPadding is the share of the event span added on each side of the
	// pannable bound.
	boundPadding = 1.0

	// defaultMatchYears is how close (in years) a supplied window must be to
	// the default one to be treated as "not supplied".
	defaultMatchYears = 1
)

// ViewportSource records where the viewport of a render pass came from.
type ViewportSource string

const (
	SourceExplicit ViewportSource = "explicit"
	SourceSmart    ViewportSource = "smart"
	SourceDefault  ViewportSource = "default"
)

// ComputeSmartViewport pads the span covered by items. It reports false
// when items is empty or every item sits on the same instant.
func ComputeSmartViewport(items []model.TimelineItem) (model.Viewport, bool) {
	if len(items) == 0 {
		return model.Viewport{}, false
	}

	earliest := items[0].Start
	latest := items[0].Start
	for _, it := range items {
		if it.Start.Before(earliest) {
			earliest = it.Start
		}
		last := it.Start
		if it.End != nil {
			last = *it.End
		}
		if last.After(latest) {
			latest = last
		}
	}

	lo := model.Millis(earliest)
	hi := model.Millis(latest)
	span := hi - lo
	if !model.IsFinite(span) || span <= 0 {
		return model.Viewport{}, false
	}

	return model.Viewport{
		Start:   lo - visiblePadding*span,
		End:     hi + visiblePadding*span,
		Min:     lo - boundPadding*span,
		Max:     hi + boundPadding*span,
		ZoomMin: DefaultZoomMin,
		ZoomMax: DefaultZoomMax,
	}, true
}

// SelectViewport chooses the window for a render pass. A supplied window
// wins unless legacyDetection is set and the window looks like the static
// default, in which case it is treated as absent. Without a supplied window
// the smart viewport is used, then the static default.
//
// The result still has to go through Sanitize.
func SelectViewport(supplied *model.Viewport, defaults model.Viewport, items []model.TimelineItem, legacyDetection bool, loc *time.Location) (model.Viewport, ViewportSource) {
	if supplied != nil && !(legacyDetection && looksLikeDefault(*supplied, defaults, loc)) {
		return CompleteWindow(*supplied, loc), SourceExplicit
	}
	if vp, ok := ComputeSmartViewport(items); ok {
		return vp, SourceSmart
	}
	return defaults, SourceDefault
}

// CompleteWindow fills a missing (non-finite) min or max of a supplied
// window from its start and end, padding by the requested span on each
// side. The padding is reduced so the bound stays within 100 years and the
// years 1900..2100. Windows whose start/end are unreadable, inverted or
// outside those years are returned unchanged for Sanitize to repair.
func CompleteWindow(v model.Viewport, loc *time.Location) model.Viewport {
	if model.IsFinite(v.Min) && model.IsFinite(v.Max) {
		return v
	}
	if loc == nil {
		loc = time.Local
	}
	start, ok := model.FromMillis(v.Start, loc)
	if !ok {
		return v
	}
	end, ok := model.FromMillis(v.End, loc)
	if !ok || !end.After(start) {
		return v
	}
	floor := time.Date(minSaneYear, time.January, 1, 0, 0, 0, 0, loc)
	ceil := time.Date(maxSaneYear, time.January, 1, 0, 0, 0, 0, loc)
	if start.Before(floor) || end.After(ceil) {
		return v
	}

	span := end.Sub(start)
	// Two days of slack keep the padded bound under the 100-year limit
	// whatever leap days it crosses.
	limit := start.AddDate(maxSpanYears, 0, 0).Sub(start) - 48*time.Hour
	pad := span
	if room := (limit - span) / 2; pad > room {
		pad = max(room, 0)
	}

	lo, hi := start.Add(-pad), end.Add(pad)
	if lo.Before(floor) {
		lo = floor
	}
	if hi.After(ceil) {
		hi = ceil
	}
	if !model.IsFinite(v.Min) {
		v.Min = model.Millis(lo)
	}
	if !model.IsFinite(v.Max) {
		v.Max = model.Millis(hi)
	}
	return v
}

func looksLikeDefault(v, defaults model.Viewport, loc *time.Location) bool {
	return yearsClose(v.Start, defaults.Start, loc) && yearsClose(v.End, defaults.End, loc)
}

func yearsClose(a, b float64, loc *time.Location) bool {
	ta, ok := model.FromMillis(a, loc)
	if !ok {
		return false
	}
	tb, ok := model.FromMillis(b, loc)
	if !ok {
		return false
	}
	d := ta.Year() - tb.Year()
	return d >= -defaultMatchYears && d <= defaultMatchYears
}
