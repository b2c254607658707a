package domain

import (
	"context"

	"github.com/adhocore/gronx/pkg/tasker"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"twotokens/internal/crontab"
	"twotokens/internal/importer"
	"twotokens/internal/store"
)

type UseCase struct {
	store  *store.Store
	sync   *crontab.Synchronizer
	runner Runner
	pool   *pool.ContextPool
	ctx    context.Context
}

func New(ctx context.Context, st *store.Store, sync *crontab.Synchronizer, runner Runner) *UseCase {
	return &UseCase{
		store:  st,
		sync:   sync,
		runner: runner,
		pool:   pool.New().WithContext(ctx).WithMaxGoroutines(1),
		ctx:    ctx,
	}
}

func (uc *UseCase) Store() *store.Store {
	return uc.store
}

func jobs(tasks []store.Task) []crontab.Job {
	out := make([]crontab.Job, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, crontab.Job{Name: t.Name, Schedule: t.Schedule})
	}
	return out
}

// InstallTasks pushes every stored task into the scheduler table.
func (uc *UseCase) InstallTasks() (int, error) {
	return uc.sync.InstallAll(uc.ctx, jobs(uc.store.Tasks()))
}

func (uc *UseCase) RemoveTasks() (int, error) {
	return uc.sync.RemoveAll(uc.ctx)
}

func (uc *UseCase) ListScheduled() (crontab.Table, error) {
	return uc.sync.List(uc.ctx)
}

// ImportResult counts what an import did.
type ImportResult struct {
	Created []store.Event
	Skipped int
}

// Import creates events from a calendar source and saves once at the end.
// Inputs that fail validation or collide with existing task names are
// skipped.
func (uc *UseCase) Import(src importer.CalImporter) (ImportResult, error) {
	inputs, err := src.Get(uc.ctx)
	if err != nil {
		return ImportResult{}, err
	}
	var res ImportResult
	for _, in := range inputs {
		ev, err := uc.store.CreateEvent(in)
		if err != nil {
			log.Warn().Err(err).Str("eventName", in.Name).Msg("skipping imported event")
			res.Skipped++
			continue
		}
		res.Created = append(res.Created, ev)
	}
	if len(res.Created) == 0 {
		return res, nil
	}
	if err := uc.store.Save(); err != nil {
		return res, errors.Wrap(err, "error saving imported events")
	}
	return res, nil
}

// Serve runs stored tasks in-process on their schedules until the context
// ends. It is an alternative to installing them into crontab.
func (uc *UseCase) Serve() (int, error) {
	tasks := uc.store.Tasks()
	taskr := tasker.New(tasker.Option{})
	registered := 0
	for _, t := range tasks {
		if err := crontab.Validate(t.Schedule); err != nil {
			log.Warn().Err(err).Str("task", t.Name).Msg("skipping task with invalid schedule")
			continue
		}
		name := t.Name
		taskr.Task(t.Schedule, func(ctx context.Context) (int, error) {
			res, err := uc.ExecuteTask(ctx, name)
			return res.ExitCode, err
		})
		registered++
	}
	if registered == 0 {
		return 0, errors.New("no tasks to serve")
	}
	uc.pool.Go(func(ctx context.Context) error {
		taskr.WithContext(ctx).Run()
		return nil
	})
	log.Info().Int("tasks", registered).Msg("serving tasks in-process")
	return registered, nil
}

func (uc *UseCase) Stop() {
	if err := uc.pool.Wait(); err != nil {
		log.Err(err).Msg("error stopping use case")
	}
}
