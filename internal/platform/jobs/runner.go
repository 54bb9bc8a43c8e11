// Package jobs runs periodic background jobs (reminders, notification
// dispatch, cleanup) on fixed intervals and exposes their state over HTTP.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/metrics"
)

// JobFunc is the work performed by a job on every tick.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	fn       JobFunc

	mu           sync.Mutex
	runs         int
	lastRun      *time.Time
	lastDuration time.Duration
	lastError    string
}

// Status is a snapshot of a job's state.
type Status struct {
	Name         string     `json:"name"`
	Interval     string     `json:"interval"`
	Runs         int        `json:"runs"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastDuration string     `json:"last_duration,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// Runner owns a set of registered jobs and ticks each on its own interval.
type Runner struct {
	logger zerolog.Logger

	mu   sync.RWMutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

func NewRunner(logger zerolog.Logger) *Runner {
	return &Runner{
		logger: logger.With().Str("component", "jobs").Logger(),
		jobs:   make(map[string]*job),
	}
}

// Register adds a job. Must be called before Start.
func (r *Runner) Register(name string, interval time.Duration, fn JobFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[name] = &job{name: name, interval: interval, fn: fn}
}

// Start launches one goroutine per job. Each job runs once immediately and
// then on every tick until the context is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		j := j
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.runJob(ctx, j)

			ticker := time.NewTicker(j.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					r.runJob(ctx, j)
				}
			}
		}()
	}
}

// Wait blocks until all job goroutines have exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// RunNow triggers a single run of the named job.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	r.mu.RLock()
	j, ok := r.jobs[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return r.runJob(ctx, j)
}

func (r *Runner) runJob(ctx context.Context, j *job) (err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}

		outcome := "ok"
		errMsg := ""
		if err != nil {
			outcome = "error"
			errMsg = err.Error()
			r.logger.Error().Err(err).Str("job", j.name).Msg("job failed")
		} else {
			r.logger.Debug().Str("job", j.name).Dur("duration", time.Since(start)).Msg("job completed")
		}
		metrics.IncJobRun(j.name, outcome)

		now := time.Now()
		j.mu.Lock()
		j.runs++
		j.lastRun = &now
		j.lastDuration = time.Since(start)
		j.lastError = errMsg
		j.mu.Unlock()
	}()

	return j.fn(ctx)
}

// Statuses returns a snapshot of every registered job.
func (r *Runner) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Status
	for _, j := range r.jobs {
		j.mu.Lock()
		st := Status{
			Name:      j.name,
			Interval:  j.interval.String(),
			Runs:      j.runs,
			LastRun:   j.lastRun,
			LastError: j.lastError,
		}
		if j.lastDuration > 0 {
			st.LastDuration = j.lastDuration.String()
		}
		j.mu.Unlock()
		out = append(out, st)
	}
	return out
}
