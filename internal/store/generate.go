package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Schedule renders a one-shot 5-field cron expression for t with the
// weekday left open.
func Schedule(t time.Time) string {
	return fmt.Sprintf("%d %d %d %d *", t.Minute(), t.Hour(), t.Day(), int(t.Month()))
}

func TaskName(eventName, templateName string) string {
	return eventName + "_" + templateName
}

// GenerateDerivedTasks builds one task per template without storing them.
// Names already present in the store, or repeated within the set, fail
// with ErrDuplicateTask.
func (s *Store) GenerateDerivedTasks(ev Event) ([]Task, error) {
	values := map[Placeholder]string{
		PlaceholderEventName: ev.Name,
		PlaceholderEventID:   strconv.Itoa(ev.ID),
		PlaceholderSponsor:   ev.Sponsor,
		PlaceholderDirector:  ev.Director,
		PlaceholderTopic:     ev.Topic,
	}
	seen := make(map[string]struct{}, len(s.templates))
	created := NewTimestamp(s.now())
	tasks := make([]Task, 0, len(s.templates))
	for _, tpl := range s.templates {
		name := TaskName(ev.Name, tpl.Name)
		if _, dup := seen[name]; dup {
			return nil, errors.Wrapf(ErrDuplicateTask, "%s", name)
		}
		if _, exists := s.Task(name); exists {
			return nil, errors.Wrapf(ErrDuplicateTask, "%s", name)
		}
		seen[name] = struct{}{}
		// AddDate keeps the wall clock across DST changes.
		at := ev.Date.AddDate(0, 0, tpl.offsetDays())
		tasks = append(tasks, Task{
			Name:        name,
			Command:     tpl.command.Expand(values),
			Schedule:    Schedule(at),
			EventID:     ev.ID,
			TaskType:    tpl.kind,
			Description: tpl.Description,
			Created:     created,
		})
	}
	return tasks, nil
}
