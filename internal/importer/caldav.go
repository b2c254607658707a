package importer

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"twotokens/internal/store"
)

var _ CalImporter = (*CalDAV)(nil)

type CalDAV struct {
	cl     *caldav.Client
	window Window
}

func NewCalDAV(url, user, pass string, window Window) (*CalDAV, error) {
	var httpClient webdav.HTTPClient = http.DefaultClient
	if user != "" && pass != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, user, pass)
	}
	cl, err := caldav.NewClient(httpClient, url)
	if err != nil {
		return nil, errors.Wrap(err, "error creating caldav client")
	}
	return &CalDAV{cl: cl, window: window}, nil
}

func (c *CalDAV) Get(ctx context.Context) ([]store.EventInput, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: c.window.From,
				End:   c.window.To,
			}},
		},
	}
	objs, err := c.cl.QueryCalendar(ctx, "", query)
	if err != nil {
		return nil, errors.Wrap(err, "error querying caldav calendar")
	}
	var out []store.EventInput
	for _, obj := range objs {
		if obj.Data == nil {
			continue
		}
		for _, ev := range obj.Data.Events() {
			out = append(out, c.convert(obj.Path, ev)...)
		}
	}
	return out, nil
}

func (c *CalDAV) convert(path string, ev ical.Event) []store.EventInput {
	text := func(name string) string {
		v, _ := ev.Props.Text(name)
		return v
	}
	base := store.EventInput{
		Name:        strings.TrimSpace(text(ical.PropSummary)),
		Description: text(ical.PropDescription),
		Topic:       text(ical.PropCategories),
	}
	if org := ev.Props.Get(ical.PropOrganizer); org != nil {
		base.Sponsor = strings.Join(people(org.Value), ",")
	}
	for _, att := range ev.Props.Values(ical.PropAttendee) {
		base.Team = append(base.Team, people(att.Value)...)
	}
	if base.Name == "" {
		log.Warn().Str("path", path).Msg("caldav event has no summary, skipping")
		return nil
	}
	start, err := ev.DateTimeStart(time.Local)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Str("eventTitle", base.Name).Msg("caldav event has no start date, skipping")
		return nil
	}
	set, err := ev.RecurrenceSet(time.Local)
	if err != nil {
		log.Error().Err(err).Str("path", path).Str("eventTitle", base.Name).Msg("caldav event has invalid rrule")
		return nil
	}
	if set == nil {
		return []store.EventInput{single(base, start)}
	}
	return occurrences(base, set.Between(c.window.From, c.window.To, true))
}
