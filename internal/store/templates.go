package store

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Template struct {
	Name        string `json:"name" yaml:"name"`
	Command     string `json:"command" yaml:"command"`
	DaysBefore  int    `json:"days_before,omitempty" yaml:"days_before,omitempty"`
	DaysAfter   int    `json:"days_after,omitempty" yaml:"days_after,omitempty"`
	Description string `json:"description" yaml:"description"`
}

type Templates struct {
	PreEvent  []Template `json:"pre_event" yaml:"pre_event"`
	PostEvent []Template `json:"post_event" yaml:"post_event"`
}

func DefaultTemplates() Templates {
	return Templates{
		PreEvent: []Template{
			{
				Name:        "sponsor_reminder",
				Command:     "./twotokens event notify sponsor {event_name}",
				DaysBefore:  7,
				Description: "Send sponsor reminder 1 week before event",
			},
			{
				Name:        "team_preparation",
				Command:     "./twotokens event notify team {event_name}",
				DaysBefore:  3,
				Description: "Send team preparation notice 3 days before",
			},
			{
				Name:        "final_reminder",
				Command:     "./twotokens event notify all {event_name}",
				DaysBefore:  1,
				Description: "Send final reminder 1 day before event",
			},
		},
		PostEvent: []Template{
			{
				Name:        "post_event_update",
				Command:     "./twotokens event complete --id {event_id}",
				DaysAfter:   1,
				Description: "Update event status and create summary",
			},
		},
	}
}

// LoadTemplates reads a YAML template set and checks every command.
func LoadTemplates(path string) (Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Templates{}, errors.Wrap(err, "error reading templates file")
	}
	var tpls Templates
	if err := yaml.Unmarshal(data, &tpls); err != nil {
		return Templates{}, errors.Wrap(err, "error decoding templates file")
	}
	if _, err := compileTemplates(tpls); err != nil {
		return Templates{}, err
	}
	return tpls, nil
}

type compiledTemplate struct {
	Template
	kind    TaskType
	command CommandTemplate
}

// offsetDays is negative for pre_event templates.
func (t compiledTemplate) offsetDays() int {
	if t.kind == TaskPreEvent {
		return -t.DaysBefore
	}
	return t.DaysAfter
}

func compileTemplates(tpls Templates) ([]compiledTemplate, error) {
	out := make([]compiledTemplate, 0, len(tpls.PreEvent)+len(tpls.PostEvent))
	add := func(kind TaskType, list []Template) error {
		for _, t := range list {
			if t.Name == "" {
				return errors.Wrapf(ErrValidation, "%s template without name", kind)
			}
			cmd, err := ParseCommand(t.Command)
			if err != nil {
				return errors.Wrapf(err, "template %s", t.Name)
			}
			out = append(out, compiledTemplate{Template: t, kind: kind, command: cmd})
		}
		return nil
	}
	if err := add(TaskPreEvent, tpls.PreEvent); err != nil {
		return nil, err
	}
	if err := add(TaskPostEvent, tpls.PostEvent); err != nil {
		return nil, err
	}
	return out, nil
}
