// Package scheduler provides cron-based scheduling for the monitor tick.
//
// Jobs run in the configured timezone so "0 * * * *" means the top of the
// hour in, say, Asia/Tokyo rather than wherever the host happens to be.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// New creates and starts a cron scheduler in the given timezone. An empty
// timezone falls back to the host's local time.
func New(timezone string) (*Scheduler, error) {
	loc := time.Local
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("scheduler: invalid timezone %q: %w", timezone, err)
		}
	}

	// Standard 5-field cron parser (min, hour, dom, month, dow), with panic
	// recovery so a wedged job cannot take the scheduler down.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}, nil
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
