package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Dosada05/esports-platform/live"
	"github.com/Dosada05/esports-platform/metrics"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/payments"
	"github.com/Dosada05/esports-platform/repositories"
)

// RegistrationService runs the tournament join workflow.
type RegistrationService interface {
	Register(ctx context.Context, input RegisterInput) (*models.Participant, error)
	CreatePaymentIntent(ctx context.Context, userID, tournamentID int) (*payments.PaymentIntent, error)
}

type RegisterInput struct {
	TournamentID    int
	UserID          int
	TeamID          *int
	PaymentIntentID *string
}

type registrationService struct {
	tournaments  repositories.TournamentRepository
	participants repositories.ParticipantRepository
	processor    payments.Processor
	metrics      Recorder
	hub          live.Broadcaster
	logger       *slog.Logger
}

func NewRegistrationService(
	store repositories.Storage,
	processor payments.Processor,
	recorder Recorder,
	hub live.Broadcaster,
	logger *slog.Logger,
) RegistrationService {
	if processor == nil {
		processor = payments.NewDisabledProcessor()
	}
	return &registrationService{
		tournaments:  store,
		participants: store,
		processor:    processor,
		metrics:      orNopRecorder(recorder),
		hub:          orNopBroadcaster(hub),
		logger:       orDiscardLogger(logger),
	}
}

// Register checks, in order: the tournament exists and is open, the user is
// not registered yet, there is a free slot, and the entry fee is paid. The
// storage call repeats the uniqueness and capacity checks atomically.
func (s *registrationService) Register(ctx context.Context, input RegisterInput) (*models.Participant, error) {
	p, err := s.register(ctx, input)
	s.metrics.Registration(registrationOutcome(err))
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Participant registered",
		slog.Int("tournament_id", p.TournamentID),
		slog.Int("user_id", p.UserID),
		slog.Bool("paid", p.PaymentIntentID != nil),
	)
	s.hub.BroadcastToRoom(live.TournamentRoom(p.TournamentID), live.Message{Type: live.TypeParticipantJoined, Payload: p})
	return p, nil
}

func (s *registrationService) register(ctx context.Context, input RegisterInput) (*models.Participant, error) {
	t, err := s.tournaments.GetTournamentByID(ctx, input.TournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if t.Status != models.StatusUpcoming {
		return nil, ErrRegistrationClosed
	}

	registered, err := s.participants.IsUserRegistered(ctx, input.UserID, input.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}
	if registered {
		return nil, ErrAlreadyRegistered
	}
	if t.IsFull() {
		return nil, ErrTournamentFull
	}

	var intentID *string
	if t.RequiresPayment() {
		id, err := s.verifyPayment(ctx, t, input)
		if err != nil {
			return nil, err
		}
		intentID = &id
	}

	p := &models.Participant{
		TournamentID:    input.TournamentID,
		UserID:          input.UserID,
		TeamID:          input.TeamID,
		PaymentIntentID: intentID,
	}
	if err := s.participants.RegisterParticipant(ctx, p); err != nil {
		return nil, handleRepositoryError(err)
	}
	return p, nil
}

func (s *registrationService) verifyPayment(ctx context.Context, t *models.Tournament, input RegisterInput) (string, error) {
	if input.PaymentIntentID == nil || strings.TrimSpace(*input.PaymentIntentID) == "" {
		return "", ErrEntryFeeUnpaid
	}
	id := strings.TrimSpace(*input.PaymentIntentID)

	intent, err := s.processor.GetPaymentIntent(ctx, id)
	switch {
	case errors.Is(err, payments.ErrProcessorUnavailable):
		return "", ErrPaymentsDisabled
	case errors.Is(err, payments.ErrIntentNotFound):
		return "", ErrPaymentMismatch
	case err != nil:
		return "", fmt.Errorf("failed to verify payment %s: %w", id, err)
	}

	if intent.Status != payments.StatusSucceeded {
		return "", ErrPaymentIncomplete
	}
	if intent.Amount != t.EntryFee ||
		!strings.EqualFold(intent.Currency, t.Currency) ||
		intent.Metadata[payments.MetadataTournamentID] != strconv.Itoa(t.ID) ||
		intent.Metadata[payments.MetadataUserID] != strconv.Itoa(input.UserID) {
		s.logger.WarnContext(ctx, "Payment intent does not match registration",
			slog.String("payment_intent_id", id),
			slog.Int("tournament_id", t.ID),
			slog.Int("user_id", input.UserID),
		)
		return "", ErrPaymentMismatch
	}
	return id, nil
}

func (s *registrationService) CreatePaymentIntent(ctx context.Context, userID, tournamentID int) (*payments.PaymentIntent, error) {
	t, err := s.tournaments.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if t.Status != models.StatusUpcoming {
		return nil, ErrRegistrationClosed
	}
	if !t.RequiresPayment() {
		return nil, ErrNoEntryFee
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, payments.CreateIntentParams{
		Amount:       t.EntryFee,
		Currency:     t.Currency,
		TournamentID: t.ID,
		UserID:       userID,
	})
	if err != nil {
		if errors.Is(err, payments.ErrProcessorUnavailable) {
			return nil, ErrPaymentsDisabled
		}
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return intent, nil
}

func registrationOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeRegistered
	case errors.Is(err, ErrCapacity):
		return metrics.OutcomeFull
	case errors.Is(err, ErrAlreadyRegistered):
		return metrics.OutcomeDuplicate
	case errors.Is(err, ErrRegistrationClosed):
		return metrics.OutcomeClosed
	case errors.Is(err, ErrPaymentRequired):
		return metrics.OutcomePaymentRequired
	case errors.Is(err, ErrPaymentInvalid):
		return metrics.OutcomePaymentInvalid
	}
	return metrics.OutcomeError
}
