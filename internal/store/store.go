package store

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Store owns the event document in memory. Mutations never touch the
// file; call Save to persist.
type Store struct {
	path      string
	doc       Document
	templates []compiledTemplate
	now       func() time.Time
}

// Open loads the document at path. A missing or empty file yields an empty
// document with default templates.
func Open(path string) (*Store, error) {
	var doc Document
	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Str("path", path).Msg("event document does not exist, starting empty")
	case err != nil:
		return nil, errors.Wrap(err, "error opening event document")
	default:
		defer f.Close()
		dec := json.NewDecoder(f)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "error decoding event document")
		}
	}
	s, err := New(doc)
	if err != nil {
		return nil, err
	}
	s.path = path
	return s, nil
}

// New wraps an in-memory document. The result has no backing file until
// SaveAs is called.
func New(doc Document) (*Store, error) {
	if doc.Templates == nil {
		def := DefaultTemplates()
		doc.Templates = &def
	}
	compiled, err := compileTemplates(*doc.Templates)
	if err != nil {
		return nil, err
	}
	return &Store{doc: doc, templates: compiled, now: time.Now}, nil
}

func (s *Store) Path() string {
	return s.path
}

// SetClock replaces the time source used for timestamps and upcoming
// windows.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Save() error {
	if s.path == "" {
		return errors.New("event document has no path")
	}
	return s.SaveAs(s.path)
}

// SaveAs writes the document through a temp file and rename.
func (s *Store) SaveAs(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "error creating document directory")
	}
	tmp, err := os.CreateTemp(dir, ".twotokens-*.json")
	if err != nil {
		return errors.Wrap(err, "error creating temp document")
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.doc); err != nil {
		tmp.Close()
		return errors.Wrap(err, "error encoding event document")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "error closing temp document")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "error replacing event document")
	}
	s.path = path
	return nil
}

func (s *Store) Templates() Templates {
	return *s.doc.Templates
}

// SetTemplates replaces the template configuration. Existing tasks are
// left as they are.
func (s *Store) SetTemplates(tpls Templates) error {
	compiled, err := compileTemplates(tpls)
	if err != nil {
		return err
	}
	s.doc.Templates = &tpls
	s.templates = compiled
	return nil
}

func (s *Store) nextID() int {
	maxID := 0
	for _, e := range s.doc.Events {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	return maxID + 1
}

// checkName trims an event name. Task names embed it and end up on a
// single scheduler line, so control characters are rejected.
func checkName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errors.Wrap(ErrValidation, "event name is required")
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", errors.Wrapf(ErrValidation, "event name %q contains control characters", name)
	}
	return name, nil
}

func (s *Store) CreateEvent(in EventInput) (Event, error) {
	name, err := checkName(in.Name)
	if err != nil {
		return Event{}, err
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return Event{}, err
	}
	team := make([]string, 0, len(in.Team))
	for _, member := range in.Team {
		if member = strings.TrimSpace(member); member != "" {
			team = append(team, member)
		}
	}
	ev := Event{
		ID:          s.nextID(),
		Name:        name,
		Date:        NewTimestamp(date),
		Sponsor:     in.Sponsor,
		Director:    in.Director,
		Team:        team,
		Topic:       in.Topic,
		Description: in.Description,
		Status:      StatusScheduled,
		Created:     NewTimestamp(s.now()),
		Tasks:       []string{},
	}
	tasks, err := s.GenerateDerivedTasks(ev)
	if err != nil {
		return Event{}, err
	}
	for _, t := range tasks {
		ev.Tasks = append(ev.Tasks, t.Name)
	}
	s.doc.Events = append(s.doc.Events, ev)
	s.doc.Tasks = append(s.doc.Tasks, tasks...)
	log.Info().Int("eventID", ev.ID).Str("eventName", ev.Name).Int("tasks", len(tasks)).Msg("event created")
	return ev.clone(), nil
}

func (s *Store) GetEvent(id int) (Event, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Event{}, false
	}
	return s.doc.Events[i].clone(), true
}

func (s *Store) indexOf(id int) int {
	for i, e := range s.doc.Events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// ListEvents returns matching events sorted by date.
func (s *Store) ListEvents(filter ListFilter) []Event {
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]Event, 0, len(s.doc.Events))
	for _, e := range s.doc.Events {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if term != "" && !matches(e, term) {
			continue
		}
		out = append(out, e.clone())
	}
	sortByDate(out)
	return out
}

func matches(e Event, term string) bool {
	for _, field := range []string{e.Name, e.Topic, e.Sponsor, e.Director} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func sortByDate(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date.Time)
	})
}

// UpdateEvent applies the patch and stamps the modified time. It reports
// false for an unknown id. Derived tasks are not regenerated.
func (s *Store) UpdateEvent(id int, patch EventPatch) (bool, error) {
	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return false, errors.Wrapf(ErrValidation, "unknown status %q", *patch.Status)
	}
	var name string
	if patch.Name != nil {
		var err error
		if name, err = checkName(*patch.Name); err != nil {
			return false, err
		}
	}
	ev := &s.doc.Events[i]
	if patch.Name != nil {
		ev.Name = name
	}
	if patch.Date != nil {
		ev.Date = NewTimestamp(*patch.Date)
	}
	if patch.Sponsor != nil {
		ev.Sponsor = *patch.Sponsor
	}
	if patch.Director != nil {
		ev.Director = *patch.Director
	}
	if patch.Team != nil {
		ev.Team = append([]string{}, (*patch.Team)...)
	}
	if patch.Topic != nil {
		ev.Topic = *patch.Topic
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Status != nil {
		ev.Status = *patch.Status
	}
	modified := NewTimestamp(s.now())
	ev.Modified = &modified
	log.Info().Int("eventID", id).Msg("event updated")
	return true, nil
}

// DeleteEvent removes the event and every task named in its task list.
func (s *Store) DeleteEvent(id int) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	owned := make(map[string]struct{}, len(s.doc.Events[i].Tasks))
	for _, name := range s.doc.Events[i].Tasks {
		owned[name] = struct{}{}
	}
	remaining := s.doc.Tasks[:0]
	for _, t := range s.doc.Tasks {
		if _, ok := owned[t.Name]; !ok {
			remaining = append(remaining, t)
		}
	}
	removed := len(s.doc.Tasks) - len(remaining)
	s.doc.Tasks = remaining
	s.doc.Events = append(s.doc.Events[:i], s.doc.Events[i+1:]...)
	log.Info().Int("eventID", id).Int("tasksRemoved", removed).Msg("event deleted")
	return true
}

func (s *Store) CompleteEvent(id int) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	now := NewTimestamp(s.now())
	s.doc.Events[i].Status = StatusCompleted
	s.doc.Events[i].Completed = &now
	log.Info().Int("eventID", id).Msg("event completed")
	return true
}

// CompleteEventByName completes the first event with the given name.
//
// Deprecated: names are not unique, use CompleteEvent.
func (s *Store) CompleteEventByName(name string) (Event, error) {
	for _, e := range s.doc.Events {
		if e.Name == name {
			log.Warn().Str("eventName", name).Msg("completing event by name is deprecated, use --id")
			s.CompleteEvent(e.ID)
			ev, _ := s.GetEvent(e.ID)
			return ev, nil
		}
	}
	return Event{}, errors.Wrapf(ErrNotFound, "event %q", name)
}

// UpcomingEvents returns events dated within [now, now+daysAhead].
func (s *Store) UpcomingEvents(daysAhead int) []Event {
	now := s.now()
	cutoff := now.AddDate(0, 0, daysAhead)
	var out []Event
	for _, e := range s.doc.Events {
		if !e.Date.Before(now) && !e.Date.After(cutoff) {
			out = append(out, e.clone())
		}
	}
	sortByDate(out)
	return out
}

func (s *Store) Tasks() []Task {
	return append([]Task(nil), s.doc.Tasks...)
}

// Task returns the first task with the given name.
func (s *Store) Task(name string) (Task, bool) {
	for _, t := range s.doc.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}
