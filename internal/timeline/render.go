package timeline

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	appLog "chronoview/internal/log"
	"chronoview/internal/model"
)

// Request carries the caller's optional explicit window. A nil Window
// means "not supplied".
type Request struct {
	Window *model.Viewport
}

// Pass is the output of one render pass: a sanitized viewport and the items
// that survived assembly.
type Pass struct {
	ID             string               `json:"pass_id"`
	Viewport       model.Viewport       `json:"viewport"`
	ViewportSource ViewportSource       `json:"viewport_source"`
	Items          []model.TimelineItem `json:"items"`
	Rejected       int                  `json:"rejected"`
	Demoted        int                  `json:"demoted"`
	Filtered       int                  `json:"filtered"`
	// Notice is a user-visible, non-fatal message set when the pass had to
	// fall back to an empty render.
	Notice string `json:"notice,omitempty"`
}

// Renderer builds render passes. It holds configuration only; every pass
// starts from scratch.
type Renderer struct {
	Settings Settings
	Loc      *time.Location
	Log      *appLog.Logger

	// LegacyDefaultDetection treats a supplied window that resembles the
	// static default as not supplied.
	LegacyDefaultDetection bool

	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

func (r *Renderer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Renderer) location() *time.Location {
	if r.Loc != nil {
		return r.Loc
	}
	return time.Local
}

// Render assembles events and selects a sanitized viewport.
func (r *Renderer) Render(events []model.RawEvent, req Request) Pass {
	now := r.now()
	loc := r.location()
	pass := Pass{
		ID:    ulid.Make().String(),
		Items: make([]model.TimelineItem, 0, len(events)),
	}

	defaults := BuildDefaults(r.Settings, now, loc, r.Log)
	asm := Assembler{Config: r.Settings.DateFormat, Loc: loc, Now: now, Log: r.Log}

	for _, ev := range events {
		if !defaults.Tags.Matches(ev) {
			pass.Filtered++
			continue
		}
		res := asm.Assemble(ev)
		if res.Status == Rejected {
			pass.Rejected++
			r.Log.Debug("event rejected", "pass", pass.ID, "id", ev.ID, "source", ev.SourceID, "reason", res.Reason)
			continue
		}
		if res.Degraded {
			pass.Demoted++
		}
		pass.Items = append(pass.Items, res.Item)
	}

	vp, src := SelectViewport(req.Window, defaults.Viewport, pass.Items, r.LegacyDefaultDetection, loc)
	pass.Viewport = Sanitizer{Loc: loc, Log: r.Log}.Sanitize(vp)
	pass.ViewportSource = src

	r.Log.Info("render pass completed",
		"pass", pass.ID,
		"events", len(events),
		"items", len(pass.Items),
		"rejected", pass.Rejected,
		"demoted", pass.Demoted,
		"filtered", pass.Filtered,
		"viewport", src,
	)
	return pass
}

// SafeRender is Render with a last-resort net: if the pass panics, it
// returns no items, the sanitized static default window and a Notice.
func (r *Renderer) SafeRender(events []model.RawEvent, req Request) (pass Pass) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("render pass panicked: %v", rec)
			r.Log.Error("render pass failed; serving empty timeline", err)
			pass = r.EmptyPass(err.Error())
		}
	}()
	return r.Render(events, req)
}

// EmptyPass returns a pass with no items and the sanitized static default
// window.
func (r *Renderer) EmptyPass(notice string) Pass {
	loc := r.location()
	defaults := BuildDefaults(r.Settings, r.now(), loc, r.Log)
	return Pass{
		ID:             ulid.Make().String(),
		Viewport:       Sanitizer{Loc: loc, Log: r.Log}.Sanitize(defaults.Viewport),
		ViewportSource: SourceDefault,
		Items:          []model.TimelineItem{},
		Notice:         notice,
	}
}
