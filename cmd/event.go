package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"twotokens/internal/config"
	"twotokens/internal/domain"
	"twotokens/internal/exporter"
	"twotokens/internal/importer"
	"twotokens/internal/store"
)

func eventCreateCmd(_ context.Context, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	k := config.Gist()
	ev, err := st.CreateEvent(store.EventInput{
		Name:        k.String(config.NAME),
		Date:        k.String(config.DATE),
		Sponsor:     k.String(config.SPONSOR),
		Director:    k.String(config.DIRECTOR),
		Team:        k.Strings(config.TEAM),
		Topic:       k.String(config.TOPIC),
		Description: k.String(config.DESCRIPTION),
	})
	if err != nil {
		return errors.Wrap(err, "error creating event")
	}
	if err := st.Save(); err != nil {
		return err
	}
	fmt.Printf("✅ Created event %d: %s (%d tasks)\n", ev.ID, ev.Name, len(ev.Tasks))
	return nil
}

func eventListCmd(_ context.Context, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	k := config.Gist()
	status := store.Status(k.String(config.STATUS))
	if status != "" && !status.Valid() {
		return errors.Wrapf(store.ErrValidation, "unknown status %q", status)
	}
	events := st.ListEvents(store.ListFilter{Status: status, Search: k.String(config.SEARCH)})
	return printEvents(os.Stdout, events, k.String(config.FORMAT))
}

func eventSearchCmd(_ context.Context, args []string) error {
	term := strings.Join(args, " ")
	if term == "" {
		term = config.Gist().String(config.SEARCH)
	}
	if term == "" {
		return errors.New("search term is required")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	return printEvents(os.Stdout, st.ListEvents(store.ListFilter{Search: term}), config.Gist().String(config.FORMAT))
}

func eventUpcomingCmd(_ context.Context, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	return printEvents(os.Stdout, st.UpcomingEvents(config.Gist().Int(config.DAYS)), config.Gist().String(config.FORMAT))
}

func eventViewCmd(_ context.Context, args []string) error {
	id, err := eventID(args)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	ev, ok := st.GetEvent(id)
	if !ok {
		fmt.Printf("❌ Event %d not found\n", id)
		return nil
	}
	printEvent(os.Stdout, ev)
	for _, name := range ev.Tasks {
		if task, ok := st.Task(name); ok {
			fmt.Printf("  - %s [%s] %s\n", task.Name, task.Schedule, task.Description)
		}
	}
	return nil
}

func eventUpdateCmd(_ context.Context, args []string) error {
	id, err := eventID(args)
	if err != nil {
		return err
	}
	patch, err := patchFromFlags()
	if err != nil {
		return err
	}
	if patch.Empty() {
		return errors.New("nothing to update")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	ok, err := st.UpdateEvent(id, patch)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("❌ Event %d not found\n", id)
		return nil
	}
	if err := st.Save(); err != nil {
		return err
	}
	fmt.Printf("✅ Updated event %d\n", id)
	return nil
}

func patchFromFlags() (store.EventPatch, error) {
	k := config.Gist()
	var p store.EventPatch
	str := func(key string) *string {
		if !config.Changed(key) {
			return nil
		}
		v := k.String(key)
		return &v
	}
	p.Name = str(config.NAME)
	p.Sponsor = str(config.SPONSOR)
	p.Director = str(config.DIRECTOR)
	p.Topic = str(config.TOPIC)
	p.Description = str(config.DESCRIPTION)
	if config.Changed(config.TEAM) {
		team := k.Strings(config.TEAM)
		p.Team = &team
	}
	if config.Changed(config.STATUS) {
		status := store.Status(k.String(config.STATUS))
		p.Status = &status
	}
	if config.Changed(config.DATE) {
		date, err := store.ParseDate(k.String(config.DATE))
		if err != nil {
			return store.EventPatch{}, err
		}
		p.Date = &date
	}
	return p, nil
}

func eventDeleteCmd(_ context.Context, args []string) error {
	id, err := eventID(args)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	if !st.DeleteEvent(id) {
		fmt.Printf("❌ Event %d not found\n", id)
		return nil
	}
	if err := st.Save(); err != nil {
		return err
	}
	fmt.Printf("✅ Deleted event %d and its tasks\n", id)
	return nil
}

// eventCompleteCmd completes by --id. A positional name is still accepted
// for crontab entries written by older versions.
func eventCompleteCmd(_ context.Context, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	if config.Changed(config.ID) {
		id := config.Gist().Int(config.ID)
		if !st.CompleteEvent(id) {
			fmt.Printf("❌ Event %d not found\n", id)
			return nil
		}
		if err := st.Save(); err != nil {
			return err
		}
		fmt.Printf("✅ Event %d marked as completed\n", id)
		return nil
	}
	name := strings.Join(args, " ")
	if name == "" {
		return errors.New("--id is required")
	}
	ev, err := st.CompleteEventByName(name)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Printf("❌ Event '%s' not found\n", name)
		return nil
	}
	if err != nil {
		return err
	}
	if err := st.Save(); err != nil {
		return err
	}
	fmt.Printf("✅ Event '%s' marked as completed\n", ev.Name)
	return nil
}

func eventNotifyCmd(_ context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: event notify sponsor|team|all <event name>")
	}
	n := domain.Notifier{Out: os.Stdout}
	return n.Notify(domain.Audience(args[0]), strings.Join(args[1:], " "))
}

func eventExportCmd(_ context.Context, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	events := st.ListEvents(store.ListFilter{})
	out := config.Gist().String(config.OUT)
	if err := exporter.ExportFile(out, events, time.Now()); err != nil {
		return err
	}
	fmt.Printf("✅ Exported %d events to %s\n", len(events), out)
	return nil
}

func eventImportCmd(ctx context.Context, _ []string) error {
	k := config.Gist()
	window := importer.NewWindow(time.Now(), k.Int(config.IMPORT_DAYS))
	var src importer.CalImporter
	switch {
	case k.String(config.FILE) != "":
		src = importer.NewICSFile(k.String(config.FILE), window)
	case k.String(config.URL) != "":
		src = importer.NewFeed(k.String(config.URL), k.String(config.CALDAV_USER), k.String(config.CALDAV_PASS), window)
	case k.Bool(config.CALDAV):
		if k.String(config.CALDAV_URL) == "" {
			return errors.New("caldav.url is required")
		}
		dav, err := importer.NewCalDAV(k.String(config.CALDAV_URL), k.String(config.CALDAV_USER), k.String(config.CALDAV_PASS), window)
		if err != nil {
			return err
		}
		src = dav
	default:
		return errors.New("one of --file, --url or --caldav is required")
	}
	uc, err := newUseCase(ctx)
	if err != nil {
		return err
	}
	res, err := uc.Import(src)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Imported %d events, skipped %d\n", len(res.Created), res.Skipped)
	return nil
}

func eventID(args []string) (int, error) {
	if config.Changed(config.ID) {
		return config.Gist().Int(config.ID), nil
	}
	if len(args) > 0 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, errors.Wrapf(store.ErrValidation, "event id %q", args[0])
		}
		return id, nil
	}
	return 0, errors.New("--id is required")
}
