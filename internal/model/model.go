package model

import (
	"math"
	"time"
)

// ItemType is the closed set of item shapes understood by the timeline page.
type ItemType string

const (
	TypeBox        ItemType = "box"
	TypePoint      ItemType = "point"
	TypeRange      ItemType = "range"
	TypeBackground ItemType = "background"
)

// RawEvent is an event record as delivered by a source (ICS feed, YAML
// list) before any date parsing. Start/End are the loose date strings the
// character-positional parser consumes.
type RawEvent struct {
	SourceID string `yaml:"-" json:"source_id"`
	ID       string `yaml:"id" json:"id"`

	Title   string   `yaml:"title" json:"title"`
	Content string   `yaml:"content" json:"content"`
	Group   string   `yaml:"group" json:"group"`
	Tags    []string `yaml:"tags" json:"tags"`

	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
	Type  string `yaml:"type" json:"type"`
}

// TimelineItem is a render-ready item. If End is set it is strictly after
// Start; point items never carry an End.
type TimelineItem struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id,omitempty"`

	Content string   `json:"content"`
	Title   string   `json:"title,omitempty"`
	Group   string   `json:"group,omitempty"`
	Type    ItemType `json:"type"`

	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`

	// StartLabel / EndLabel are the human-readable parsed forms.
	StartLabel string `json:"start_label"`
	EndLabel   string `json:"end_label,omitempty"`
}

// Viewport is the visible/pannable window handed to the timeline page.
// All instants are Unix milliseconds, matching what the page consumes;
// a value may be non-finite until it has been sanitized.
type Viewport struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`

	ZoomMin float64 `json:"zoom_min"`
	ZoomMax float64 `json:"zoom_max"`
}

// maxMillis is the largest instant magnitude the page can represent
// (±100,000,000 days around the epoch).
const maxMillis = 8.64e15

// Millis converts t to Unix milliseconds.
func Millis(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// FromMillis converts Unix milliseconds back to a time in loc. It reports
// false for non-finite or unrepresentable values.
func FromMillis(ms float64, loc *time.Location) (time.Time, bool) {
	if !IsFinite(ms) || math.Abs(ms) > maxMillis {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(int64(ms)).In(loc), true
}

// IsFinite reports whether f is neither NaN nor ±Inf.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
