package exporter

import (
	"io"
	"os"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"twotokens/internal/store"
)

const productID = "-//TwoTokens//Automation//EN"

// uidSpace makes event UIDs stable across exports.
var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://twotokens.invalid/events"))

func EventUID(id int) string {
	return uuid.NewSHA1(uidSpace, []byte(strconv.Itoa(id))).String()
}

// Calendar builds a VCALENDAR holding one VEVENT per event.
func Calendar(events []store.Event, now time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	for _, e := range events {
		ev := cal.AddEvent(EventUID(e.ID))
		ev.SetDtStampTime(now)
		if !e.Created.IsZero() {
			ev.SetCreatedTime(e.Created.Time)
		}
		if e.Modified != nil {
			ev.SetModifiedAt(e.Modified.Time)
		}
		ev.SetStartAt(e.Date.Time)
		ev.SetSummary(e.Name)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.Topic != "" {
			ev.SetProperty(ics.ComponentPropertyCategories, e.Topic)
		}
		if e.Sponsor != "" {
			ev.SetOrganizer(e.Sponsor)
		}
		for _, member := range e.Team {
			ev.AddAttendee(member)
		}
		status := "CONFIRMED"
		if e.Status == store.StatusCompleted {
			status = "COMPLETED"
		}
		ev.SetProperty(ics.ComponentPropertyStatus, status)
	}
	return cal
}

func Write(w io.Writer, events []store.Event, now time.Time) error {
	if err := Calendar(events, now).SerializeTo(w); err != nil {
		return errors.Wrap(err, "error encoding calendar")
	}
	return nil
}

// ExportFile writes events to path, replacing any previous export.
func ExportFile(path string, events []store.Event, now time.Time) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "error opening export file")
	}
	defer f.Close()
	if err := Write(f, events, now); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("events", len(events)).Msg("events exported")
	return f.Close()
}
