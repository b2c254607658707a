package store

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	return s == StatusScheduled || s == StatusCompleted
}

type TaskType string

const (
	TaskPreEvent  TaskType = "pre_event"
	TaskPostEvent TaskType = "post_event"
)

// Document is the whole persisted state. It is rewritten in full on Save.
type Document struct {
	Events    []Event    `json:"events"`
	Templates *Templates `json:"event_templates,omitempty"`
	Tasks     []Task     `json:"tasks"`
}

type Event struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Date        Timestamp  `json:"date"`
	Sponsor     string     `json:"sponsor,omitempty"`
	Director    string     `json:"director,omitempty"`
	Team        []string   `json:"team"`
	Topic       string     `json:"topic,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Created     Timestamp  `json:"created"`
	Modified    *Timestamp `json:"modified,omitempty"`
	Completed   *Timestamp `json:"completed,omitempty"`
	// Tasks holds names of derived tasks, not the tasks themselves.
	Tasks []string `json:"tasks"`
}

func (e Event) clone() Event {
	e.Team = append([]string(nil), e.Team...)
	e.Tasks = append([]string(nil), e.Tasks...)
	return e
}

type Task struct {
	Name        string    `json:"name"`
	Command     string    `json:"command"`
	Schedule    string    `json:"schedule"`
	EventID     int       `json:"event_id"`
	TaskType    TaskType  `json:"task_type"`
	Description string    `json:"description"`
	Created     Timestamp `json:"created"`
}

// EventInput carries the fields accepted by CreateEvent. Date is parsed
// with ParseDate.
type EventInput struct {
	Name        string
	Date        string
	Sponsor     string
	Director    string
	Team        []string
	Topic       string
	Description string
}

// EventPatch lists the fields UpdateEvent may change. Nil means untouched.
type EventPatch struct {
	Name        *string
	Date        *time.Time
	Sponsor     *string
	Director    *string
	Team        *[]string
	Topic       *string
	Description *string
	Status      *Status
}

func (p EventPatch) Empty() bool {
	return p.Name == nil && p.Date == nil && p.Sponsor == nil && p.Director == nil &&
		p.Team == nil && p.Topic == nil && p.Description == nil && p.Status == nil
}

type ListFilter struct {
	Status Status
	Search string
}

// Timestamp keeps the wall clock of the parsed value. Local times are
// written without an offset so files stay readable and never drift.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) String() string {
	if t.Location() == time.Local {
		return t.Format(DateLayout)
	}
	return t.Format(time.RFC3339)
}
