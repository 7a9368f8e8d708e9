package cronjob

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jeevanjiji/websphere-final/internal/award"
)

type Scheduler struct {
	coordinator *award.Coordinator
}

func NewScheduler(coordinator *award.Coordinator) *Scheduler {
	return &Scheduler{coordinator: coordinator}
}

// Start initializes cron tasks
func (s *Scheduler) Start() {
	c := cron.New(cron.WithSeconds())

	// every 5 minutes
	_, err := c.AddFunc("0 */5 * * * *", func() {
		s.runRepairSweep()
	})

	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return
	}

	log.Println("Cron scheduler started (award repair sweep every 5 minutes)")
	c.Start()
}

func (s *Scheduler) runRepairSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s.coordinator.Repair(ctx)
}
