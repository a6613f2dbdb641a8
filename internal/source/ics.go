package source

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// Custom VEVENT properties understood by the ICS source.
const (
	propTimelineType  = "X-TIMELINE-TYPE"
	propTimelineGroup = "X-TIMELINE-GROUP"
)

// icsEvent is one VEVENT as read from the feed. Start/End keep the raw
// DTSTART/DTEND values for the positional parser; StartAt/EndAt are the
// library's zone-aware reading and only feed recurrence expansion.
type icsEvent struct {
	UID         string
	Summary     string
	Description string
	Categories  []string
	Type        string
	Group       string

	Start string
	End   string

	StartAt time.Time
	EndAt   time.Time
	AllDay  bool

	RRule   string
	ExDates []string
}

// parseICS reads every VEVENT in body. Events without DTSTART are skipped;
// the rest of the feed is still returned.
func parseICS(body []byte) ([]icsEvent, []error) {
	if len(body) == 0 {
		return nil, []error{errors.New("empty ICS body")}
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, []error{err}
	}

	var (
		out  []icsEvent
		errs []error
	)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, ev)
	}
	return out, errs
}

func parseVEvent(ve *ical.VEvent) (icsEvent, error) {
	var ev icsEvent

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyCategories) {
		for _, c := range strings.Split(p.Value, ",") {
			if c = strings.TrimSpace(c); c != "" {
				ev.Categories = append(ev.Categories, c)
			}
		}
	}
	if p := ve.GetProperty(propTimelineType); p != nil {
		ev.Type = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(propTimelineGroup); p != nil {
		ev.Group = strings.TrimSpace(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return ev, errors.New("missing DTSTART")
	}
	ev.Start = dtStart.Value
	// VALUE=DATE or no 'T' in the value -> all-day
	if vs, ok := dtStart.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		ev.AllDay = true
	}
	if !strings.Contains(dtStart.Value, "T") {
		ev.AllDay = true
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		ev.End = p.Value
	}

	// The zone-aware reading is best effort; without it the event is still
	// rendered, just not expanded.
	if t, err := ve.GetStartAt(); err == nil {
		ev.StartAt = t
	}
	if t, err := ve.GetEndAt(); err == nil {
		ev.EndAt = t
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ev.ExDates = append(ev.ExDates, part)
			}
		}
	}

	return ev, nil
}
