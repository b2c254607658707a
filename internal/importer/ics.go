package importer

import (
	"context"
	"io"
	"os"
	"strings"

	ics "github.com/arran4/golang-ical"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/teambition/rrule-go"

	"twotokens/internal/store"
)

var _ CalImporter = (*ICSFile)(nil)

type ICSFile struct {
	path   string
	window Window
}

func NewICSFile(path string, window Window) *ICSFile {
	return &ICSFile{path: path, window: window}
}

func (i *ICSFile) Get(_ context.Context) ([]store.EventInput, error) {
	f, err := os.Open(i.path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening ics file")
	}
	defer f.Close()
	return ParseICS(f, i.window)
}

// ParseICS reads VEVENTs. Events with an RRULE are expanded inside the
// window, the rest are taken as they are.
func ParseICS(r io.Reader, window Window) ([]store.EventInput, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing calendar")
	}
	var out []store.EventInput
	for _, event := range cal.Events() {
		base := store.EventInput{
			Name:        strings.TrimSpace(ValueOrEmpty(event.ComponentBase.GetProperty(ics.ComponentPropertySummary))),
			Description: ValueOrEmpty(event.ComponentBase.GetProperty(ics.ComponentPropertyDescription)),
			Topic:       ValueOrEmpty(event.ComponentBase.GetProperty(ics.ComponentPropertyCategories)),
			Sponsor:     strings.Join(people(ValueOrEmpty(event.ComponentBase.GetProperty(ics.ComponentPropertyOrganizer))), ","),
			Team:        people(JoinProperties(event.Properties, ics.ComponentPropertyAttendee)),
		}
		uid := ValueOrEmpty(event.ComponentBase.GetProperty(ics.ComponentPropertyUniqueId))
		if base.Name == "" {
			log.Warn().Str("eventID", uid).Msg("event has no summary, skipping")
			continue
		}
		start, err := event.GetStartAt()
		if err != nil {
			log.Warn().Err(err).Str("eventID", uid).Str("eventTitle", base.Name).Msg("event has no start date, skipping")
			continue
		}
		rule := ValueOrEmpty(event.ComponentBase.GetProperty(ics.ComponentPropertyRrule))
		if rule == "" {
			out = append(out, single(base, start))
			continue
		}
		rropt, err := rrule.StrToROptionInLocation(rule, start.Location())
		if err != nil {
			log.Error().Err(err).
				Str("eventID", uid).
				Str("eventTitle", base.Name).
				Str("eventRrule", rule).
				Msg("event has invalid rrule")
			continue
		}
		rropt.Dtstart = start
		rr, err := rrule.NewRRule(*rropt)
		if err != nil {
			log.Error().Err(err).
				Str("eventID", uid).
				Str("eventTitle", base.Name).
				Str("eventRrule", rropt.RRuleString()).
				Msg("event has invalid rrule")
			continue
		}
		out = append(out, occurrences(base, rr.Between(window.From, window.To, true))...)
	}
	return out, nil
}
