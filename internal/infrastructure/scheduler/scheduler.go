// Package scheduler fires the recurring ingestion job on a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"newsindex/internal/ports"
)

// Cron implements ports.Scheduler on robfig/cron.
type Cron struct {
	spec string
	cron *cron.Cron
}

var _ ports.Scheduler = (*Cron)(nil)

// New builds a scheduler for the given cron spec in the given location.
func New(spec string, location *time.Location) *Cron {
	return &Cron{
		spec: spec,
		cron: cron.New(cron.WithLocation(location)),
	}
}

// Start registers the job and begins firing it. The job receives the tick
// time.
func (c *Cron) Start(ctx context.Context, job func(time.Time)) error {
	if _, err := c.cron.AddFunc(c.spec, func() { job(time.Now()) }); err != nil {
		return fmt.Errorf("register cron job %q: %w", c.spec, err)
	}
	c.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running job to finish, bounded by
// the caller's context.
func (c *Cron) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
