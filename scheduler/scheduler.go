package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// The three daily publication slots, fixed wall-clock times in the
// configured timezone. Missed fires are not caught up.
var slots = []struct {
	Name   string
	Hour   int
	Minute int
}{
	{"morning", 9, 0},
	{"day", 14, 0},
	{"evening", 19, 0},
}

// Scheduler fires the cycle function at the daily slots.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
}

// NewScheduler builds the daily schedule in the given IANA timezone.
func NewScheduler(timezone string, run func(slot string)) (*Scheduler, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	c := cron.New(cron.WithLocation(location))
	for _, slot := range slots {
		slot := slot
		if _, err := c.AddFunc(cronSpec(slot.Hour, slot.Minute), func() { run(slot.Name) }); err != nil {
			return nil, fmt.Errorf("add %s schedule: %w", slot.Name, err)
		}
		log.Printf("[SCHEDULER] Registered %s cycle at %02d:%02d (%s)",
			slot.Name, slot.Hour, slot.Minute, location)
	}

	return &Scheduler{
		cron:     c,
		location: location,
	}, nil
}

func cronSpec(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

func (s *Scheduler) Start() {
	log.Printf("[SCHEDULER] Starting daily schedule (timezone: %s)", s.location)
	s.cron.Start()
}

// Stop halts new cycles and waits for an in-flight cycle to complete.
func (s *Scheduler) Stop() {
	log.Println("[SCHEDULER] Stopping scheduler, waiting for in-flight cycle...")
	<-s.cron.Stop().Done()
	log.Println("[SCHEDULER] Scheduler stopped")
}
