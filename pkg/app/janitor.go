package app

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/sipeed/cinebot/pkg/logger"
)

// Task is one housekeeping step. It returns how many items it removed.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Janitor runs its tasks on a cron schedule.
type Janitor struct {
	schedule string
	tasks    []Task
	now      func() time.Time
}

// NewJanitor validates schedule and builds a janitor running tasks.
func NewJanitor(schedule string, tasks ...Task) (*Janitor, error) {
	j := &Janitor{schedule: schedule, tasks: tasks, now: time.Now}
	if _, err := j.next(j.now()); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Janitor) next(after time.Time) (time.Time, error) {
	t, err := gronx.NextTickAfter(j.schedule, after, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid janitor schedule %q: %w", j.schedule, err)
	}
	return t, nil
}

// Run blocks until ctx is done, running every task at each tick.
func (j *Janitor) Run(ctx context.Context) error {
	logger.InfoCF("janitor", "Janitor started", map[string]interface{}{
		"schedule": j.schedule,
		"tasks":    len(j.tasks),
	})
	for {
		next, err := j.next(j.now())
		if err != nil {
			return err
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.InfoC("janitor", "Janitor stopped")
			return nil
		case <-timer.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce runs every task now. A failing task does not stop the others.
func (j *Janitor) RunOnce(ctx context.Context) map[string]int {
	removed := make(map[string]int, len(j.tasks))
	for _, task := range j.tasks {
		n, err := task.Run(ctx)
		if err != nil {
			logger.WarnCF("janitor", "Task failed", map[string]interface{}{
				"task":  task.Name,
				"error": err.Error(),
			})
			continue
		}
		removed[task.Name] = n
		if n > 0 {
			logger.DebugCF("janitor", "Task removed items", map[string]interface{}{
				"task":    task.Name,
				"removed": n,
			})
		}
	}
	return removed
}
