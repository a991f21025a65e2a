package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/buyvia/catalogsync/internal/catalog"
)

// Pass names recorded in pass_runs and used as lock keys.
const (
	PassSync     = "sync"
	PassHarvest  = "harvest"
	PassLocalize = "localize"
)

// passLockTTL bounds how long a crashed instance can block a pass.
const passLockTTL = 2 * time.Hour

// staleRunThreshold is how old a 'running' pass row must be before
// startup recovery marks it crashed.
const staleRunThreshold = 6 * time.Hour

// Scheduler manages the periodic sync, harvest and localization passes.
// Every run takes a database lock first, so multiple instances can run
// the same schedule without stepping on each other.
type Scheduler struct {
	cron    *cron.Cron
	engine  *Engine
	catalog catalog.Catalog
	log     *slog.Logger
	holder  string
}

// NewScheduler creates a Scheduler that runs engine passes on their
// intervals. A localizeInterval of 0 disables the localization pass.
func NewScheduler(
	eng *Engine,
	cat catalog.Catalog,
	syncInterval time.Duration,
	harvestInterval time.Duration,
	localizeInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:    c,
		engine:  eng,
		catalog: cat,
		log:     log,
		holder:  uuid.NewString(),
	}

	if _, err := c.AddFunc("@every "+syncInterval.String(), s.runSync); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc("@every "+harvestInterval.String(), s.runHarvest); err != nil {
		return nil, err
	}
	if localizeInterval > 0 {
		if _, err := c.AddFunc("@every "+localizeInterval.String(), s.runLocalize); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start recovers stale pass runs and begins running scheduled passes.
func (s *Scheduler) Start() {
	ctx := context.Background()
	if recovered, err := s.catalog.RecoverStalePassRuns(ctx, staleRunThreshold); err != nil {
		s.log.Error("stale pass run recovery failed", "error", err)
	} else if recovered > 0 {
		s.log.Warn("recovered stale pass runs", "count", recovered)
	}

	s.log.Info("scheduler started", "holder", s.holder)
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running passes to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runSync() {
	s.runPass(PassSync, s.engine.RunSyncPass)
}

func (s *Scheduler) runHarvest() {
	s.runPass(PassHarvest, s.engine.RunHarvestPass)
}

func (s *Scheduler) runLocalize() {
	s.runPass(PassLocalize, s.engine.RunLocalizePass)
}

// runPass wraps one pass execution with the distributed lock and
// pass_runs bookkeeping.
func (s *Scheduler) runPass(name string, fn func(context.Context) (int, error)) {
	ctx := context.Background()

	acquired, err := s.catalog.AcquirePassLock(ctx, name, s.holder, passLockTTL)
	if err != nil {
		s.log.Error("pass lock acquisition failed", "pass", name, "error", err)
		return
	}
	if !acquired {
		s.log.Info("pass already running elsewhere, skipping", "pass", name)
		return
	}
	defer func() {
		if err := s.catalog.ReleasePassLock(ctx, name, s.holder); err != nil {
			s.log.Error("pass lock release failed", "pass", name, "error", err)
		}
	}()

	runID, err := s.catalog.InsertPassRun(ctx, name)
	if err != nil {
		s.log.Error("pass run insert failed", "pass", name, "error", err)
		return
	}

	s.log.Info("pass starting", "pass", name, "run_id", runID)

	rows, passErr := fn(ctx)

	status, errText := "succeeded", ""
	if passErr != nil {
		status, errText = "failed", passErr.Error()
		s.log.Error("pass failed", "pass", name, "error", passErr)
	} else {
		s.log.Info("pass complete", "pass", name, "rows", rows)
	}

	if err := s.catalog.CompletePassRun(ctx, runID, status, errText, rows); err != nil {
		s.log.Error("pass run completion failed", "pass", name, "error", err)
	}
}
