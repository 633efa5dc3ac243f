package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/esports-platform/repositories"
	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	sched       gocron.Scheduler
	tournaments repositories.TournamentRepository
	metrics     Recorder
	logger      *slog.Logger
}

func NewScheduler(tournaments repositories.TournamentRepository, interval time.Duration, recorder Recorder, logger *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	s := &Scheduler{
		sched:       sched,
		tournaments: tournaments,
		metrics:     orNopRecorder(recorder),
		logger:      orDiscardLogger(logger),
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.ReconcileParticipantCounts(ctx)
		}),
		gocron.WithName("reconcile-participant-counts"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register reconcile job: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// ReconcileParticipantCounts fixes tournament counters that drifted from the
// number of active participants and returns how many were corrected.
func (s *Scheduler) ReconcileParticipantCounts(ctx context.Context) int {
	fixed, err := s.tournaments.ReconcileParticipantCounts(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Participant counter reconcile failed", slog.Any("error", err))
		return 0
	}
	if fixed > 0 {
		s.metrics.Reconciled(fixed)
		s.logger.WarnContext(ctx, "Participant counters corrected", slog.Int("tournaments", fixed))
	}
	return fixed
}
