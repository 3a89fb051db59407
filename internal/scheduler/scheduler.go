// Package scheduler runs the recurring background jobs. Jobs are registered
// with a cron expression and executed with a fresh background context; a
// failed run is logged and retried on the next tick, never escalated.
package scheduler

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Job is one schedulable unit of background work.
type Job interface {
	Name() string
	Schedule() string
	Execute(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make([]Job, 0),
	}
}

func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		log.Printf("📝 [%s] Registered as on-demand job (no schedule)", job.Name())
		return
	}

	_, err := s.cron.AddFunc(schedule, func() {
		log.Printf("⏰ [%s] Starting scheduled job...", job.Name())
		if err := job.Execute(context.Background()); err != nil {
			log.Printf("❌ [%s] Job failed: %v", job.Name(), err)
		} else {
			log.Printf("✅ [%s] Job completed successfully", job.Name())
		}
	})
	if err != nil {
		log.Printf("⚠️ Failed to schedule job %s: %v", job.Name(), err)
	} else {
		log.Printf("📅 [%s] Scheduled with cron: %s", job.Name(), schedule)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Scheduler started with %d registered jobs", len(s.jobs))
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("🛑 Scheduler stopped")
}

// RunByName triggers a job manually, useful for ops and tests.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			log.Printf("🎯 [%s] Running on-demand execution...", name)
			return job.Execute(ctx)
		}
	}
	log.Printf("⚠️ Job with name '%s' not found", name)
	return nil
}
