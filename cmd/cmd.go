package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/rs/zerolog/log"

	"twotokens/internal/config"
	"twotokens/internal/crontab"
	"twotokens/internal/domain"
	"twotokens/internal/store"
)

// Blocking command; args are positional arguments after the command words.
type command func(ctx context.Context, args []string) error

type commandRegistry map[string]command

var commands = commandRegistry{
	"event create":   eventCreateCmd,
	"event list":     eventListCmd,
	"event view":     eventViewCmd,
	"event update":   eventUpdateCmd,
	"event delete":   eventDeleteCmd,
	"event search":   eventSearchCmd,
	"event upcoming": eventUpcomingCmd,
	"event complete": eventCompleteCmd,
	"event notify":   eventNotifyCmd,
	"event export":   eventExportCmd,
	"event import":   eventImportCmd,
	"task install":   taskInstallCmd,
	"task remove":    taskRemoveCmd,
	"task list":      taskListCmd,
	"task status":    taskStatusCmd,
	"task execute":   taskExecuteCmd,
	"task validate":  taskValidateCmd,
	"task serve":     taskServeCmd,
}

// Run executes the selected command and returns the process exit code.
func Run() int {
	name := config.Gist().String(config.CMD)
	cmdFn, ok := commands[name]
	if !ok {
		help()
		if name == "" {
			return 0
		}
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := cmdFn(ctx, config.Gist().Strings(config.ARGS)); err != nil {
		log.Err(err).Str("cmd", name).Msg("command failed")
		fmt.Printf("❌ %v\n", err)
		return 1
	}
	return 0
}

func help() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("Usage: twotokens [command] [flags]")
	fmt.Println("Commands:")
	for _, name := range names {
		fmt.Println("  " + name)
	}
	fmt.Println("Example: twotokens event create --name Launch --date 2025-06-10T14:00:00")
	fmt.Println("Config params (name|required|default):\v")
	fmt.Println(config.Sprint())
}

func openStore() (*store.Store, error) {
	st, err := store.Open(storePath())
	if err != nil {
		return nil, err
	}
	if path := config.Gist().String(config.TEMPLATES_PATH); path != "" {
		tpls, err := store.LoadTemplates(path)
		if err != nil {
			return nil, err
		}
		if err := st.SetTemplates(tpls); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// storePath is the document path made absolute, since cron and task
// commands run from other working directories.
func storePath() string {
	path := config.Gist().String(config.STORE_PATH)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func newSynchronizer() *crontab.Synchronizer {
	return crontab.New(
		&crontab.CommandTool{Binary: config.Gist().String(config.CRON_BINARY)},
		crontab.Layout{
			Marker: config.Gist().String(config.CRON_MARKER),
			Token:  config.Gist().String(config.CRON_TOKEN),
		},
		crontab.Target{
			Executable: config.Gist().String(config.CRON_EXECUTABLE),
			StorePath:  storePath(),
		},
	)
}

func newUseCase(ctx context.Context) (*domain.UseCase, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	// task commands refer to ./twotokens, resolve them next to the binary
	runner := &domain.ShellRunner{
		Dir: filepath.Dir(config.Gist().String(config.CRON_EXECUTABLE)),
		Env: []string{"TWOTOKENS_STORE_PATH=" + storePath()},
	}
	return domain.New(ctx, st, newSynchronizer(), runner), nil
}
