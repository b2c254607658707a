package crontab

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Synchronizer keeps the managed block of the scheduler table in step with
// a job list. Foreign lines are preserved in order.
type Synchronizer struct {
	tool   Tool
	layout Layout
	target Target
}

var ErrInvalidName = errors.New("invalid task name")

func New(tool Tool, layout Layout, target Target) *Synchronizer {
	if layout.Marker == "" {
		layout.Marker = DefaultMarker
	}
	if layout.Token == "" {
		layout.Token = DefaultToken
	}
	return &Synchronizer{tool: tool, layout: layout, target: target}
}

// InstallAll replaces the managed block with jobs and returns how many
// were written. Nothing is written if any name or schedule is invalid.
func (s *Synchronizer) InstallAll(ctx context.Context, jobs []Job) (int, error) {
	for _, job := range jobs {
		if !validName(job.Name) {
			return 0, errors.Wrapf(ErrInvalidName, "%q", job.Name)
		}
		if err := Validate(job.Schedule); err != nil {
			return 0, errors.Wrapf(err, "task %s", job.Name)
		}
	}
	current, err := s.tool.Read(ctx)
	if err != nil {
		return 0, err
	}
	tbl := s.layout.Parse(current)
	if err := s.tool.Install(ctx, s.layout.Render(tbl.Foreign, jobs, s.target)); err != nil {
		log.Err(err).Msg("error installing cron jobs")
		return 0, err
	}
	log.Info().Int("installed", len(jobs)).Int("replaced", len(tbl.Entries)).Msg("cron jobs installed")
	return len(jobs), nil
}

// RemoveAll drops the managed block and returns how many entries it held.
func (s *Synchronizer) RemoveAll(ctx context.Context) (int, error) {
	current, err := s.tool.Read(ctx)
	if err != nil {
		return 0, err
	}
	tbl := s.layout.Parse(current)
	if err := s.tool.Install(ctx, s.layout.Render(tbl.Foreign, nil, s.target)); err != nil {
		log.Err(err).Msg("error removing cron jobs")
		return 0, err
	}
	log.Info().Int("removed", len(tbl.Entries)).Msg("cron jobs removed")
	return len(tbl.Entries), nil
}

func (s *Synchronizer) List(ctx context.Context) (Table, error) {
	current, err := s.tool.Read(ctx)
	if err != nil {
		return Table{}, err
	}
	return s.layout.Parse(current), nil
}
