package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"anoa.com/volunteergoals/pkg/apperror"
	"github.com/robfig/cron/v3"
)

// Scheduler runs registered jobs on their cron schedule and by name.
type Scheduler struct {
	cron *cron.Cron
	mu   sync.RWMutex
	jobs []Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		jobs: make([]Job, 0),
	}
}

// Register adds a job. Jobs with a schedule are added to cron; an invalid
// schedule is returned and the job is not registered.
func (s *Scheduler) Register(job Job) error {
	schedule := job.Schedule()
	if schedule != "" {
		_, err := s.cron.AddFunc(schedule, func() {
			log.Printf("🤖 [%s] Starting scheduled job...", job.Name())
			if err := job.Execute(context.Background()); err != nil {
				log.Printf("❌ [%s] Job failed: %v", job.Name(), err)
			} else {
				log.Printf("✅ [%s] Job completed successfully", job.Name())
			}
		})
		if err != nil {
			log.Printf("⚠️ Failed to schedule job %s: %v", job.Name(), err)
			return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
		}
		log.Printf("📅 [%s] Scheduled with cron: %s", job.Name(), schedule)
	} else {
		log.Printf("📝 [%s] Registered as on-demand job (no schedule)", job.Name())
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Scheduler started with %d registered jobs", len(s.Jobs()))
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 Scheduler stopped")
}

// RunByName executes a registered job immediately on the caller's goroutine.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	s.mu.RLock()
	var found Job
	for _, job := range s.jobs {
		if job.Name() == name {
			found = job
			break
		}
	}
	s.mu.RUnlock()

	if found == nil {
		log.Printf("⚠️ Job with name '%s' not found", name)
		return fmt.Errorf("job %q: %w", name, apperror.ErrNotFound)
	}
	log.Printf("🎯 [%s] Running on-demand execution...", name)
	return found.Execute(ctx)
}

// Jobs returns the names of all registered jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
