package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"twotokens/internal/crontab"
	"twotokens/internal/domain"
)

func taskInstallCmd(ctx context.Context, _ []string) error {
	uc, err := newUseCase(ctx)
	if err != nil {
		return err
	}
	n, err := uc.InstallTasks()
	if err != nil {
		return errors.Wrap(err, "failed to install cron jobs")
	}
	fmt.Printf("✅ Successfully installed %d cron jobs\n", n)
	return nil
}

func taskRemoveCmd(ctx context.Context, _ []string) error {
	uc, err := newUseCase(ctx)
	if err != nil {
		return err
	}
	n, err := uc.RemoveTasks()
	if err != nil {
		return errors.Wrap(err, "failed to remove cron jobs")
	}
	fmt.Printf("✅ Successfully removed %d cron jobs\n", n)
	return nil
}

func taskListCmd(ctx context.Context, _ []string) error {
	uc, err := newUseCase(ctx)
	if err != nil {
		return err
	}
	tbl, err := uc.ListScheduled()
	if err != nil {
		return err
	}
	var other []string
	for _, line := range tbl.Foreign {
		if !strings.HasPrefix(strings.TrimSpace(line), "#") {
			other = append(other, line)
		}
	}
	if len(tbl.Entries) == 0 && len(other) == 0 {
		fmt.Println("No cron jobs found.")
		return nil
	}
	fmt.Println("Current cron jobs:")
	fmt.Println(strings.Repeat("-", 50))
	if len(tbl.Entries) > 0 {
		fmt.Println("TwoTokens Automation Jobs:")
		for _, e := range tbl.Entries {
			name := e.Name
			if name == "" {
				name = "Unknown"
			}
			fmt.Printf("  - %s\n    %s\n", name, e.Line)
		}
		fmt.Println()
	}
	if len(other) > 0 {
		fmt.Println("Other Cron Jobs:")
		for _, line := range other {
			fmt.Printf("  %s\n", line)
		}
	}
	return nil
}

func taskStatusCmd(ctx context.Context, _ []string) error {
	uc, err := newUseCase(ctx)
	if err != nil {
		return err
	}
	tasks := uc.Store().Tasks()
	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}
	now := time.Now()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSCHEDULE\tNEXT RUN\tEVENT")
	for _, t := range tasks {
		next := "-"
		if at, err := domain.NextRun(t.Schedule, now); err == nil {
			next = at.Format(displayDate)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", t.Name, t.TaskType, t.Schedule, next, t.EventID)
	}
	return tw.Flush()
}

func taskExecuteCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("task name is required")
	}
	uc, err := newUseCase(ctx)
	if err != nil {
		return err
	}
	res, err := uc.ExecuteTask(ctx, strings.Join(args, " "))
	if res.Output != "" {
		fmt.Print(res.Output)
	}
	return err
}

func taskValidateCmd(_ context.Context, args []string) error {
	expr := strings.Join(args, " ")
	ok, reason := crontab.ValidateSchedule(expr)
	if !ok {
		return errors.Wrap(crontab.ErrInvalidSchedule, reason)
	}
	fmt.Printf("✅ %s\n", reason)
	return nil
}

// taskServeCmd blocks until SIGINT or SIGTERM.
func taskServeCmd(ctx context.Context, _ []string) error {
	uc, err := newUseCase(ctx)
	if err != nil {
		return err
	}
	n, err := uc.Serve()
	if err != nil {
		return err
	}
	fmt.Printf("✅ Serving %d tasks, press Ctrl+C to stop\n", n)
	<-ctx.Done()
	uc.Stop()
	return nil
}
