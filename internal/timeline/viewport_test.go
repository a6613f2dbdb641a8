package timeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chronoview/internal/dateparse"
	"chronoview/internal/model"
)

func item(start time.Time, end *time.Time) model.TimelineItem {
	return model.TimelineItem{Start: start, End: end, Type: model.TypeBox}
}

func TestValidateType(t *testing.T) {
	cases := map[string]model.ItemType{
		"":               model.TypeBox,
		"box":            model.TypeBox,
		"point":          model.TypePoint,
		"vis-point":      model.TypePoint,
		" Range ":        model.TypeRange,
		"VIS-BACKGROUND": model.TypeBackground,
		"milestone":      model.TypeBox,
		"vis-":           model.TypeBox,
	}
	for in, want := range cases {
		if got := ValidateType(in); got != want {
			t.Errorf("ValidateType(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestBuildDefaults(t *testing.T) {
	s := Settings{DateFormat: dateparse.DefaultConfig(), Tags: []string{"timeline"}}
	d := BuildDefaults(s, testNow, time.UTC, nil)

	require.Equal(t, ms(1976), d.Viewport.Start)
	require.Equal(t, ms(2076), d.Viewport.End)
	require.Equal(t, ms(1926), d.Viewport.Min)
	require.Equal(t, ms(2126), d.Viewport.Max)
	require.Equal(t, float64(DefaultZoomMin), d.Viewport.ZoomMin)
	require.Equal(t, float64(DefaultZoomMax+1), d.Viewport.ZoomMax)
	require.Equal(t, []string{"timeline"}, d.Tags.Tags)
}

func TestBuildDefaultsFloors(t *testing.T) {
	early := time.Date(1930, time.June, 1, 0, 0, 0, 0, time.UTC)
	d := BuildDefaults(Settings{DateFormat: dateparse.DefaultConfig()}, early, time.UTC, nil)
	require.Equal(t, ms(1900), d.Viewport.Start)
	require.Equal(t, ms(1800), d.Viewport.Min)
}

func TestBuildDefaultsNeverEmpty(t *testing.T) {
	// A one-digit year width makes the pipeline read "2" out of "2026";
	// a zero-width config fails outright and falls back.
	for _, cfg := range []dateparse.Config{{Year: 1, Month: 1, Day: 1, Hour: 1, Minute: 1}, {}} {
		d := BuildDefaults(Settings{DateFormat: cfg}, testNow, time.UTC, nil)
		for _, f := range []float64{d.Viewport.Start, d.Viewport.End, d.Viewport.Min, d.Viewport.Max} {
			require.True(t, model.IsFinite(f))
		}
	}
}

func TestComputeSmartViewport(t *testing.T) {
	start := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2005, time.January, 1, 0, 0, 0, 0, time.UTC)

	vp, ok := ComputeSmartViewport([]model.TimelineItem{item(start, nil), item(mid, &end)})
	require.True(t, ok)

	span := model.Millis(end) - model.Millis(start)
	require.InDelta(t, model.Millis(start)-0.2*span, vp.Start, 1)
	require.InDelta(t, model.Millis(end)+0.2*span, vp.End, 1)
	require.InDelta(t, model.Millis(start)-span, vp.Min, 1)
	require.InDelta(t, model.Millis(end)+span, vp.Max, 1)
}

func TestComputeSmartViewportDegenerate(t *testing.T) {
	_, ok := ComputeSmartViewport(nil)
	require.False(t, ok, "empty set")

	same := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, ok = ComputeSmartViewport([]model.TimelineItem{item(same, nil), item(same, nil)})
	require.False(t, ok, "zero span")
}

func TestSelectViewport(t *testing.T) {
	defaults := BuildDefaults(Settings{DateFormat: dateparse.DefaultConfig()}, testNow, time.UTC, nil).Viewport
	a := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	items := []model.TimelineItem{item(a, &b)}

	explicit := model.Viewport{Start: ms(2010), End: ms(2020), Min: ms(2000), Max: ms(2030)}
	vp, src := SelectViewport(&explicit, defaults, items, true, time.UTC)
	require.Equal(t, SourceExplicit, src)
	require.Equal(t, explicit, vp)

	vp, src = SelectViewport(nil, defaults, items, true, time.UTC)
	require.Equal(t, SourceSmart, src)
	require.Less(t, vp.Start, model.Millis(a))

	_, src = SelectViewport(nil, defaults, nil, true, time.UTC)
	require.Equal(t, SourceDefault, src)

	lookalike := defaults
	lookalike.Start = ms(1977)
	_, src = SelectViewport(&lookalike, defaults, items, true, time.UTC)
	require.Equal(t, SourceSmart, src, "legacy detection treats a default-like window as absent")

	_, src = SelectViewport(&lookalike, defaults, items, false, time.UTC)
	require.Equal(t, SourceExplicit, src, "presence alone decides without legacy detection")

	broken := model.Viewport{Start: math.NaN(), End: math.NaN()}
	_, src = SelectViewport(&broken, defaults, items, true, time.UTC)
	require.Equal(t, SourceExplicit, src)
}

func TestTagConfigMatches(t *testing.T) {
	ev := model.RawEvent{Tags: []string{"#Timeline", "work"}}

	require.True(t, TagConfig{}.Matches(ev))
	require.True(t, TagConfig{Tags: []string{"timeline"}}.Matches(ev))
	require.False(t, TagConfig{Tags: []string{"timeline"}, CaseSensitive: true}.Matches(ev))
	require.False(t, TagConfig{Tags: []string{"home"}}.Matches(ev))
}

func TestCompleteWindow(t *testing.T) {
	nan := math.NaN()
	s := Sanitizer{Loc: time.UTC}

	v := CompleteWindow(model.Viewport{Start: ms(1950), End: ms(1970), Min: nan, Max: nan, ZoomMin: nan, ZoomMax: nan}, time.UTC)
	span := ms(1970) - ms(1950)
	require.Equal(t, ms(1950)-span, v.Min, "padded by the requested span")
	require.Equal(t, ms(1970)+span, v.Max)
	got := s.Sanitize(v)
	checkInvariants(t, got)
	require.Equal(t, ms(1950), got.Start)
	require.Equal(t, ms(1970), got.End)

	// Padding below 1900 is cut at the floor.
	v = CompleteWindow(model.Viewport{Start: ms(1905), End: ms(1915), Min: nan, Max: nan}, time.UTC)
	require.Equal(t, ms(1900), v.Min)
	got = s.Sanitize(v)
	require.Equal(t, ms(1905), got.Start)
	require.Equal(t, ms(1915), got.End)

	// A wide request gets less padding so the span stays under 100 years.
	v = CompleteWindow(model.Viewport{Start: ms(1950), End: ms(2040), Min: nan, Max: nan}, time.UTC)
	got = s.Sanitize(v)
	checkInvariants(t, got)
	require.Equal(t, ms(1950), got.Start)
	require.Equal(t, ms(2040), got.End)

	// A supplied bound is kept; only the missing one is derived.
	v = CompleteWindow(model.Viewport{Start: ms(1950), End: ms(1970), Min: ms(1940), Max: nan}, time.UTC)
	require.Equal(t, ms(1940), v.Min)
	require.True(t, model.IsFinite(v.Max))

	// Unreadable or out-of-range requests are left for Sanitize.
	v = CompleteWindow(model.Viewport{Start: ms(1800), End: ms(1970), Min: nan, Max: nan}, time.UTC)
	require.True(t, math.IsNaN(v.Min))
	v = CompleteWindow(model.Viewport{Start: nan, End: ms(1970), Min: nan, Max: nan}, time.UTC)
	require.True(t, math.IsNaN(v.Max))
	v = CompleteWindow(model.Viewport{Start: ms(1970), End: ms(1950), Min: nan, Max: nan}, time.UTC)
	require.True(t, math.IsNaN(v.Min))
}

func TestRenderKeepsExplicitWindowWithoutBounds(t *testing.T) {
	r := &Renderer{
		Settings:               Settings{DateFormat: dateparse.DefaultConfig()},
		Loc:                    time.UTC,
		LegacyDefaultDetection: true,
		Now:                    func() time.Time { return testNow },
	}
	nan := math.NaN()
	pass := r.Render(nil, Request{Window: &model.Viewport{Start: ms(1950), End: ms(1970), Min: nan, Max: nan, ZoomMin: nan, ZoomMax: nan}})
	require.Equal(t, SourceExplicit, pass.ViewportSource)
	require.Equal(t, ms(1950), pass.Viewport.Start)
	require.Equal(t, ms(1970), pass.Viewport.End)
	checkInvariants(t, pass.Viewport)
}
