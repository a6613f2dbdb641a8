// Package source loads raw timeline events from ICS feeds and YAML files.
//
// Sources only deliver strings; nothing here interprets a date beyond what
// recurrence expansion needs. Parsing and validation happen in the render
// pass.
package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"chronoview/internal/dateparse"
	appLog "chronoview/internal/log"
	"chronoview/internal/model"
)

const (
	KindICS  = "ics"
	KindYAML = "yaml"
)

// Source is a single configured event source.
type Source struct {
	ID   string
	Kind string
	URL  string
	Path string
}

// kind returns the explicit kind or infers it from the file extension.
func (s Source) kind() string {
	if s.Kind != "" {
		return strings.ToLower(s.Kind)
	}
	loc := s.Path
	if loc == "" {
		loc = s.URL
	}
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		loc = loc[:i]
	}
	switch strings.ToLower(filepath.Ext(loc)) {
	case ".yaml", ".yml":
		return KindYAML
	default:
		return KindICS
	}
}

// yamlFile is the on-disk shape of a YAML event list.
type yamlFile struct {
	Events []model.RawEvent `yaml:"events"`
}

// ParseYAML reads an event list of the form
//
//	events:
//	  - title: Moon landing
//	    start: 1969-07-20
//	    type: point
func ParseYAML(body []byte) ([]model.RawEvent, error) {
	var f yamlFile
	if err := yaml.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("yaml events: %w", err)
	}
	return f.Events, nil
}

// Loader fetches and decodes sources into raw events.
type Loader struct {
	Fetcher    *Fetcher
	DateFormat dateparse.Config
	Loc        *time.Location
	// HorizonYears bounds recurrence expansion to now ± HorizonYears.
	HorizonYears int
	Now          func() time.Time
	Log          *appLog.Logger
}

func (l *Loader) window() ExpandWindow {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	years := l.HorizonYears
	if years <= 0 {
		years = 5
	}
	return ExpandWindow{
		Start: now.AddDate(-years, 0, 0),
		End:   now.AddDate(years, 0, 0),
		Loc:   l.Loc,
	}
}

// Load fetches one source and decodes it.
func (l *Loader) Load(ctx context.Context, src Source) ([]model.RawEvent, error) {
	body, err := l.Fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	var events []model.RawEvent
	switch src.kind() {
	case KindYAML:
		events, err = ParseYAML(body.Data)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.ID, err)
		}
	case KindICS:
		events = l.decodeICS(src, body.Data)
	default:
		return nil, fmt.Errorf("source %s: unknown kind %q", src.ID, src.Kind)
	}

	for i := range events {
		events[i].SourceID = src.ID
	}
	l.Log.Info("source loaded", "id", src.ID, "events", len(events), "from_cache", body.FromCache)
	return events, nil
}

func (l *Loader) decodeICS(src Source, body []byte) []model.RawEvent {
	parsed, errs := parseICS(body)
	for _, err := range errs {
		l.Log.Error("ics vevent skipped", err, "id", src.ID)
	}

	win := l.window()
	out := make([]model.RawEvent, 0, len(parsed))
	for _, ev := range parsed {
		if ev.RRule == "" {
			out = append(out, model.RawEvent{
				ID:      ev.UID,
				Title:   ev.Summary,
				Content: ev.Summary,
				Group:   ev.Group,
				Tags:    ev.Categories,
				Type:    ev.Type,
				Start:   ev.Start,
				End:     ev.End,
			})
			continue
		}

		occ, capped, err := expandRecurring(ev, win, l.DateFormat)
		if err != nil {
			l.Log.Error("ics recurrence skipped", err, "id", src.ID, "uid", ev.UID)
			continue
		}
		if capped {
			l.Log.Warn("ics recurrence truncated", "id", src.ID, "uid", ev.UID, "cap", maxOccurrencesPerEvent)
		}
		out = append(out, occ...)
	}
	return out
}

// LoadAll loads every source. A failing source is logged and reported in
// the error slice; the others still contribute their events.
func (l *Loader) LoadAll(ctx context.Context, sources []Source) ([]model.RawEvent, []error) {
	var (
		all  []model.RawEvent
		errs []error
	)
	for _, src := range sources {
		events, err := l.Load(ctx, src)
		if err != nil {
			l.Log.Error("source load failed", err, "id", src.ID)
			errs = append(errs, err)
			continue
		}
		all = append(all, events...)
	}
	return all, errs
}

// Snapshot holds the most recently loaded event set for concurrent readers.
type Snapshot struct {
	mu       sync.RWMutex
	events   []model.RawEvent
	loadedAt time.Time
}

// Refresh reloads all sources and swaps the snapshot. The previous events
// are kept if every source failed.
func (s *Snapshot) Refresh(ctx context.Context, l *Loader, sources []Source) error {
	events, errs := l.LoadAll(ctx, sources)
	if len(sources) > 0 && len(errs) == len(sources) {
		return fmt.Errorf("all sources failed: %w", errors.Join(errs...))
	}

	s.mu.Lock()
	s.events = events
	s.loadedAt = time.Now()
	s.mu.Unlock()

	return errors.Join(errs...)
}

// Events returns a copy of the current event set.
func (s *Snapshot) Events() []model.RawEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.RawEvent(nil), s.events...)
}

// LoadedAt returns when the snapshot was last replaced.
func (s *Snapshot) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
