// Package scheduler submits recurring workflows on cron schedules, for
// editorial calendars that publish on a fixed cadence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/pressline/pressline/pkg/models"
)

// Submitter is the slice of the dispatcher the scheduler needs.
type Submitter interface {
	Submit(ctx context.Context, params models.ContentParams, targets []*models.PublishTarget) (string, error)
}

// Entry is one recurring workflow definition.
type Entry struct {
	Name     string                  `json:"name"`
	CronExpr string                  `json:"cron"`
	Enabled  bool                    `json:"enabled"`
	Params   models.ContentParams    `json:"params"`
	Targets  []*models.PublishTarget `json:"targets"`
}

// Scheduler owns a cron runner and submits one workflow per entry firing.
// A firing that overlaps a still-running submission of the same entry is
// skipped rather than queued.
type Scheduler struct {
	submitter Submitter
	logger    *slog.Logger
	entries   []Entry
	cron      *cron.Cron

	mutex sync.RWMutex
	jobs  map[string]cron.EntryID
}

func NewScheduler(submitter Submitter, logger *slog.Logger, entries []Entry) *Scheduler {
	return &Scheduler{
		submitter: submitter,
		logger:    logger.With("module", "scheduler"),
		entries:   entries,
		jobs:      make(map[string]cron.EntryID),
	}
}

// Validate checks every entry before the scheduler starts, so a bad calendar
// fails at boot instead of at first firing.
func (s *Scheduler) Validate() error {
	if len(s.entries) == 0 {
		return errors.New("no schedule entries configured")
	}

	seen := make(map[string]bool, len(s.entries))

	for _, entry := range s.entries {
		if entry.Name == "" {
			return errors.New("schedule entry name is required")
		}

		if seen[entry.Name] {
			return fmt.Errorf("duplicate schedule entry name '%s'", entry.Name)
		}

		seen[entry.Name] = true

		if entry.CronExpr == "" {
			return fmt.Errorf("cron expression required for schedule entry %s", entry.Name)
		}

		if _, err := cron.ParseStandard(entry.CronExpr); err != nil {
			return fmt.Errorf("invalid cron expression '%s' for entry %s: %w", entry.CronExpr, entry.Name, err)
		}

		if len(entry.Targets) == 0 {
			return fmt.Errorf("schedule entry %s has no publish targets", entry.Name)
		}
	}

	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Validate(); err != nil {
		return err
	}

	s.logger.Info("Starting scheduler", "entries_count", len(s.entries))

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	for _, entry := range s.entries {
		if err := s.startEntry(ctx, entry); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	return nil
}

func (s *Scheduler) startEntry(ctx context.Context, entry Entry) error {
	logger := s.logger.With("entry", entry.Name)

	if !entry.Enabled {
		logger.Info("Schedule entry is disabled, skipping")

		return nil
	}

	entryID, err := s.cron.AddFunc(entry.CronExpr, func() {
		s.fire(ctx, entry)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job for entry %s: %w", entry.Name, err)
	}

	s.mutex.Lock()
	s.jobs[entry.Name] = entryID
	s.mutex.Unlock()

	logger.Info("Added cron job for schedule entry", "cron", entry.CronExpr, "entry_id", entryID)

	return nil
}

// fire submits one workflow for a schedule entry firing.
func (s *Scheduler) fire(ctx context.Context, entry Entry) {
	logger := s.logger.With("entry", entry.Name)

	workflowID, err := s.submitter.Submit(ctx, entry.Params, entry.Targets)
	if err != nil {
		logger.Error("Failed to submit scheduled workflow", "error", err)

		return
	}

	logger.Info("Submitted scheduled workflow", "workflow_id", workflowID)
}

func (s *Scheduler) Stop(_ context.Context) error {
	s.logger.Info("Stopping scheduler")

	if s.cron != nil {
		s.cron.Stop()
	}

	s.mutex.Lock()
	s.jobs = make(map[string]cron.EntryID)
	s.mutex.Unlock()

	return nil
}
