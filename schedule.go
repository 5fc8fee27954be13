package grafo

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/petrijr/grafo/pkg/api"
)

// ScheduleID identifies one scheduled flow for later removal.
type ScheduleID = cron.EntryID

// Scheduler triggers flows on cron schedules. Expressions use the 6-field
// form with a seconds column ("0 */5 * * * *" runs every five minutes).
//
//	sched := grafo.NewScheduler()
//	id, _ := sched.Add("*/10 * * * * *", flow, nil)
//	sched.Start()
//	defer sched.Stop()
//
// Each trigger runs the flow against a fresh shared store unless sharedFn
// supplies one; a run still in flight does not block the next trigger.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
	}
}

// Add schedules flow under the given cron expression. sharedFn builds the
// store for each trigger; nil means an empty store per trigger. Run failures
// are logged, never raised.
func (s *Scheduler) Add(spec string, flow *api.Flow, sharedFn func() *api.Shared) (ScheduleID, error) {
	return s.cron.AddFunc(spec, func() {
		shared := api.NewShared()
		if sharedFn != nil {
			shared = sharedFn()
		}
		if _, err := flow.Run(context.Background(), shared); err != nil {
			slog.Warn("grafo: scheduled flow failed",
				slog.String("flow", flow.Name()),
				slog.Any("error", err),
			)
		}
	})
}

// Remove drops a scheduled flow. Removing an unknown ID is a no-op.
func (s *Scheduler) Remove(id ScheduleID) {
	s.cron.Remove(id)
}

// Start begins triggering in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops triggering and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
