// Package scheduler runs configured workflows on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/switchman/internal/config"
	"github.com/zulandar/switchman/internal/sync"
)

// Scheduler owns one cron runner with a job per configured schedule.
type Scheduler struct {
	cron *cron.Cron
	jobs int
}

// New validates the schedule entries against the workflow registry and
// builds a stopped scheduler. Overlapping runs of the same job are
// skipped rather than queued: bot runs are idempotent but there is no
// reason to hammer the upstream.
func New(reg sync.Registry, schedules []config.ScheduleConfig) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	for i, s := range schedules {
		runner, ok := reg[s.Workflow]
		if !ok {
			return nil, fmt.Errorf("scheduler: schedules[%d]: unknown workflow %q", i, s.Workflow)
		}
		name, jql := s.Workflow, s.JQL
		if _, err := c.AddFunc(s.Cron, func() { runOnce(runner, name, jql) }); err != nil {
			return nil, fmt.Errorf("scheduler: schedules[%d]: cron %q: %w", i, s.Cron, err)
		}
	}

	return &Scheduler{cron: c, jobs: len(schedules)}, nil
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int { return s.jobs }

// Start begins firing jobs. No-op when there are none.
func (s *Scheduler) Start() {
	if s.jobs > 0 {
		s.cron.Start()
	}
}

// Stop halts scheduling and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runOnce executes one scheduled workflow run.
func runOnce(runner sync.Runner, name, jql string) {
	summary, err := runner.Run(context.Background(), jql)
	if err != nil {
		log.Printf("scheduler: %s: %v", name, err)
		return
	}
	log.Printf("scheduler: %s: %d tickets, %d writes, %d comments, %d errors",
		name, summary.Tickets, summary.Writes, summary.Comments, summary.Errors)
}
