package maintenance

import (
	"log"

	"github.com/robfig/cron/v3"

	"github.com/strefethen/schedule-maker-go/internal/assets"
	"github.com/strefethen/schedule-maker-go/internal/events"
	"github.com/strefethen/schedule-maker-go/internal/history"
)

// Janitor runs periodic cleanup: orphaned images that nothing references
// anymore, and snapshot logs that drifted past the retention cap.
type Janitor struct {
	logger     *log.Logger
	images     *assets.Repository
	snapshots  *history.Repository
	bus        *events.Bus
	spec       string
	historyCap int

	cron *cron.Cron
}

// NewJanitor creates a Janitor with a standard 5-field cron spec.
func NewJanitor(images *assets.Repository, snapshots *history.Repository, bus *events.Bus,
	logger *log.Logger, spec string, historyCap int) *Janitor {
	if logger == nil {
		logger = log.Default()
	}
	return &Janitor{
		logger:     logger,
		images:     images,
		snapshots:  snapshots,
		bus:        bus,
		spec:       spec,
		historyCap: historyCap,
	}
}

// Start schedules the cleanup job. Returns an error for an invalid spec.
func (j *Janitor) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(j.spec, func() {
		if err := j.RunOnce(); err != nil {
			j.logger.Printf("maintenance run failed: %v", err)
		}
	}); err != nil {
		return err
	}

	j.cron = c
	c.Start()
	j.logger.Printf("maintenance janitor scheduled (%s)", j.spec)
	return nil
}

// Stop halts the schedule. Does not interrupt a run already in flight.
func (j *Janitor) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

// RunOnce performs one cleanup pass.
func (j *Janitor) RunOnce() error {
	deleted, err := j.images.DeleteUnreferenced()
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.logger.Printf("maintenance: deleted %d unreferenced images", deleted)
		if j.bus != nil {
			j.bus.Notify("images")
		}
	}

	scheduleIDs, err := j.snapshots.ScheduleIDs()
	if err != nil {
		return err
	}
	for _, id := range scheduleIDs {
		if err := j.snapshots.TrimToCap(id, j.historyCap); err != nil {
			return err
		}
	}

	return nil
}
