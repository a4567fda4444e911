package scheduler

import "context"

// Job is a unit of background work the scheduler can run on a cron schedule
// or on demand.
type Job interface {
	// Name identifies the job in logs and for RunByName.
	Name() string

	// Schedule is a standard five-field cron expression. An empty schedule
	// registers the job as on-demand only.
	Schedule() string

	Execute(ctx context.Context) error
}

type funcJob struct {
	name     string
	schedule string
	fn       func(ctx context.Context) error
}

// NewJob wraps fn as a Job.
func NewJob(name, schedule string, fn func(ctx context.Context) error) Job {
	return &funcJob{name: name, schedule: schedule, fn: fn}
}

func (j *funcJob) Name() string     { return j.name }
func (j *funcJob) Schedule() string { return j.schedule }

func (j *funcJob) Execute(ctx context.Context) error {
	return j.fn(ctx)
}
