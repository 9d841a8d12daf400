package agent

import (
	"context"
	"log"
	"time"

	"github.com/rahul/sutra/internal/store"
)

// Launcher starts a run for a prompt and returns its id.
type Launcher interface {
	Launch(prompt string) string
}

// Scheduler re-submits stored prompts when their interval comes due.
type Scheduler struct {
	Launcher Launcher
	Store    *store.RunStore
}

func NewScheduler(launcher Launcher, st *store.RunStore) *Scheduler {
	return &Scheduler{Launcher: launcher, Store: st}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	log.Println("Schedule poller started...")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollAndLaunch()
		}
	}
}

func (s *Scheduler) pollAndLaunch() {
	due, err := s.Store.DueSchedules()
	if err != nil {
		log.Printf("Error polling schedules: %v", err)
		return
	}

	for _, sc := range due {
		log.Printf("Launching scheduled run for schedule %d: %s", sc.ID, sc.Prompt)

		runID := s.Launcher.Launch(sc.Prompt)
		log.Printf("Schedule %d started run %s", sc.ID, runID)

		if err := s.Store.UpdateScheduleLastRun(sc.ID); err != nil {
			log.Printf("Error updating last run for schedule %d: %v", sc.ID, err)
		}

		// One-time schedules (interval = 0) are removed after they fire.
		if sc.IntervalSeconds == 0 {
			if err := s.Store.DeleteSchedule(sc.ID); err != nil {
				log.Printf("Error deleting one-time schedule %d: %v", sc.ID, err)
			}
		}
	}
}
