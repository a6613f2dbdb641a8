package timeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"chronoview/internal/calendar"
	"chronoview/internal/dateparse"
	appLog "chronoview/internal/log"
	"chronoview/internal/model"
)

// maxYearsAhead bounds how far past the current year an item may start.
const maxYearsAhead = 1000

// Status is the outcome of assembling one event.
type Status int

const (
	// Rejected events are left out of the render set.
	Rejected Status = iota
	// Accepted events are rendered, possibly degraded to a point.
	Accepted
)

func (s Status) String() string {
	if s == Accepted {
		return "accepted"
	}
	return "rejected"
}

// ItemResult is the tagged result of Assemble. Item is only meaningful
// when Status is Accepted; Degraded is set when the end date was dropped.
type ItemResult struct {
	Status   Status
	Item     model.TimelineItem
	Degraded bool
	Reason   string
}

func rejected(format string, args ...any) ItemResult {
	return ItemResult{Status: Rejected, Reason: fmt.Sprintf(format, args...)}
}

// Assembler turns raw events into timeline items.
type Assembler struct {
	Config dateparse.Config
	Loc    *time.Location
	Now    time.Time
	Log    *appLog.Logger
}

// Assemble runs one event through parse, build and validation.
//
// A bad start rejects the event. A bad end only rejects it when the end
// cannot be parsed or built at all; an end that is not after the start, or
// lies outside the allowed years, is dropped and the item is shown as a
// point instead.
func (a Assembler) Assemble(ev model.RawEvent) ItemResult {
	loc := a.Loc
	if loc == nil {
		loc = time.Local
	}
	now := a.Now
	if now.IsZero() {
		now = time.Now()
	}
	maxYear := now.In(loc).Year() + maxYearsAhead

	typ := ValidateType(ev.Type)

	startC, err := dateparse.Parse(ev.Start, a.Config, false, typ)
	if err != nil {
		return rejected("start %q: %v", ev.Start, err)
	}
	start, err := calendar.Build(startC, loc)
	if err != nil {
		return rejected("start %q: %v", ev.Start, err)
	}

	item := model.TimelineItem{
		ID:         ev.ID,
		SourceID:   ev.SourceID,
		Content:    ev.Content,
		Title:      ev.Title,
		Group:      ev.Group,
		Type:       typ,
		Start:      start,
		StartLabel: startC.Readable,
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Content == "" {
		item.Content = ev.Title
	}

	if typ != model.TypePoint && ev.End != "" {
		endC, err := dateparse.Parse(ev.End, a.Config, true, typ)
		if err != nil {
			return rejected("end %q: %v", ev.End, err)
		}
		end, err := calendar.Build(endC, loc)
		if err != nil {
			return rejected("end %q: %v", ev.End, err)
		}
		item.End = &end
		item.EndLabel = endC.Readable
	}

	res := ItemResult{Status: Accepted}

	if item.End != nil && !item.End.After(item.Start) {
		res.demote(&item, "end not after start")
	}

	if y := item.Start.Year(); y < 1 || y > maxYear {
		return rejected("start year %d outside 1..%d", y, maxYear)
	}

	if item.End != nil {
		if y := item.End.Year(); y < 1 || y > maxYear {
			res.demote(&item, fmt.Sprintf("end year %d outside 1..%d", y, maxYear))
		}
	}

	if res.Degraded {
		a.Log.Debug("item demoted to point", "id", item.ID, "reason", res.Reason)
	}
	res.Item = item
	return res
}

func (r *ItemResult) demote(item *model.TimelineItem, reason string) {
	item.End = nil
	item.EndLabel = ""
	item.Type = model.TypePoint
	r.Degraded = true
	r.Reason = reason
}
