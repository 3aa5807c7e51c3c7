package monitoring

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/insight-board-be/internal/services"
)

// Janitor prunes staged uploads past their retention on a cron cadence.
// Upload staging is a hand-off to the external analysis process, not durable
// storage, so anything the analyzer has not collected by the retention
// deadline gets deleted.
type Janitor struct {
	uploadSvc services.UploadServiceProvider
	schedule  cron.Schedule
	retention time.Duration
	nextRun   time.Time
	ticker    *time.Ticker
	done      chan bool
}

// NewJanitor creates a janitor from a standard cron expression and a
// retention window.
func NewJanitor(uploadSvc services.UploadServiceProvider, cronExpr string, retention time.Duration) (*Janitor, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, err
	}
	return &Janitor{
		uploadSvc: uploadSvc,
		schedule:  schedule,
		retention: retention,
		nextRun:   schedule.Next(time.Now()),
		done:      make(chan bool),
	}, nil
}

// Run starts the janitor's ticking loop.
func (j *Janitor) Run() {
	log.Info().Time("next_run", j.nextRun).Msg("Starting upload staging janitor...")
	j.ticker = time.NewTicker(1 * time.Minute)
	defer j.ticker.Stop()

	for {
		select {
		case <-j.done:
			log.Info().Msg("Stopping upload staging janitor.")
			return
		case <-j.ticker.C:
			now := time.Now()
			if now.After(j.nextRun) {
				j.prune(now)
				j.nextRun = j.schedule.Next(now)
			}
		}
	}
}

// Stop halts the janitor.
func (j *Janitor) Stop() {
	j.done <- true
}

func (j *Janitor) prune(now time.Time) {
	cutoff := now.Add(-j.retention)
	pruned, err := j.uploadSvc.PruneOlderThan(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Janitor: failed to prune staged uploads")
		return
	}
	if pruned > 0 {
		log.Info().Int("pruned", pruned).Time("cutoff", cutoff).Msg("Janitor: pruned staged uploads")
	}
}
