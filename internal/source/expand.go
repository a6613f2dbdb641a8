package source

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"chronoview/internal/dateparse"
	"chronoview/internal/model"
)

// maxOccurrencesPerEvent caps a single RRULE so an unbounded rule cannot
// flood the render set.
const maxOccurrencesPerEvent = 500

// ExpandWindow bounds recurrence expansion.
type ExpandWindow struct {
	Start time.Time
	End   time.Time
	// Loc is the zone occurrences are written out in.
	Loc *time.Location
}

// expandRecurring turns an RRULE event into one raw event per occurrence
// inside win. Occurrence dates are written back as digit strings in the
// configured layout so they go through the same parser as every other date.
// The bool reports whether the occurrence cap was hit.
func expandRecurring(ev icsEvent, win ExpandWindow, cfg dateparse.Config) ([]model.RawEvent, bool, error) {
	if ev.StartAt.IsZero() {
		return nil, false, errors.New("expand: recurring event without a readable DTSTART")
	}
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, false, fmt.Errorf("expand: rrule %q: %w", ev.RRule, err)
	}
	r.DTStart(ev.StartAt)

	var set rrule.Set
	set.RRule(r)
	for _, raw := range ev.ExDates {
		t, err := parseICSTime(raw, ev.StartAt.Location())
		if err != nil {
			continue
		}
		set.ExDate(t)
	}

	loc := win.Loc
	if loc == nil {
		loc = time.Local
	}
	times := set.Between(win.Start.In(ev.StartAt.Location()), win.End.In(ev.StartAt.Location()), true)

	capped := false
	if len(times) > maxOccurrencesPerEvent {
		times = times[:maxOccurrencesPerEvent]
		capped = true
	}

	var dur time.Duration
	if !ev.EndAt.IsZero() && ev.EndAt.After(ev.StartAt) {
		dur = ev.EndAt.Sub(ev.StartAt)
	}

	out := make([]model.RawEvent, 0, len(times))
	for _, occ := range times {
		start := occ.In(loc)
		re := model.RawEvent{
			ID:      ev.UID + "#" + start.Format("20060102T150405"),
			Title:   ev.Summary,
			Content: ev.Summary,
			Group:   ev.Group,
			Tags:    ev.Categories,
			Type:    ev.Type,
			Start:   dateparse.Encode(start, cfg),
		}
		if dur > 0 {
			re.End = dateparse.Encode(occ.Add(dur).In(loc), cfg)
		}
		out = append(out, re)
	}
	return out, capped, nil
}

// parseICSTime reads the basic DATE / DATE-TIME / UTC forms used by EXDATE.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
