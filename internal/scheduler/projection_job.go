package scheduler

import (
	"context"
	"time"

	habit "tandera.com/daypillar/internal/modules/habit/service"
)

// ProjectionJob materializes the day's pending habit logs shortly after
// midnight so the timeline shows every due habit before the first check-in.
type ProjectionJob struct {
	habits   habit.HabitService
	schedule string
}

func NewProjectionJob(habits habit.HabitService, schedule string) *ProjectionJob {
	if schedule == "" {
		schedule = "5 0 * * *"
	}
	return &ProjectionJob{habits: habits, schedule: schedule}
}

func (j *ProjectionJob) Name() string { return "habit-log-projection" }

func (j *ProjectionJob) Schedule() string { return j.schedule }

func (j *ProjectionJob) Execute(ctx context.Context) error {
	_, err := j.habits.ProjectDay(ctx, time.Now().UTC())
	return err
}
