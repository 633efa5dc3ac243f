package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/esports-platform/repositories"
)

// Категории ошибок. Обработчики HTTP выбирают статус по категории.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("requested resource not found")
	ErrConflict        = errors.New("resource conflict")
	ErrCapacity        = errors.New("capacity exceeded")
	ErrPaymentRequired = errors.New("payment required")
	ErrPaymentInvalid  = errors.New("payment is invalid")
	ErrUnauthorized    = errors.New("authentication required")
	ErrForbidden       = errors.New("operation not allowed for the current user")
	ErrUnavailable     = errors.New("service unavailable")
)

var (
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid username or password")

	ErrUserNotFound  = newError(ErrNotFound, "user not found")
	ErrUsernameTaken = newError(ErrConflict, "username is already taken")
	ErrEmailTaken    = newError(ErrConflict, "email address is already in use")

	ErrGameNotFound  = newError(ErrNotFound, "game not found")
	ErrGameNameTaken = newError(ErrConflict, "a game with this name already exists")

	ErrTournamentNotFound      = newError(ErrNotFound, "tournament not found")
	ErrTournamentFull          = newError(ErrCapacity, "tournament is full")
	ErrRegistrationClosed      = newError(ErrConflict, "tournament registration is closed")
	ErrAlreadyRegistered       = newError(ErrConflict, "user is already registered for this tournament")
	ErrInvalidStatusTransition = newError(ErrConflict, "invalid tournament status transition")
	ErrParticipantNotFound     = newError(ErrNotFound, "participant registration not found")

	ErrEntryFeeUnpaid    = newError(ErrPaymentRequired, "entry fee must be paid before joining")
	ErrPaymentMismatch   = newError(ErrPaymentInvalid, "payment does not match this registration")
	ErrPaymentIncomplete = newError(ErrPaymentInvalid, "payment has not succeeded")
	ErrNoEntryFee        = newError(ErrValidation, "tournament has no entry fee")
	ErrPaymentsDisabled  = newError(ErrUnavailable, "payments are not configured")
	ErrUploadsDisabled   = newError(ErrUnavailable, "file uploads are not configured")

	ErrMatchNotFound         = newError(ErrNotFound, "match not found")
	ErrMatchAlreadyCompleted = newError(ErrConflict, "match result has already been recorded")
	ErrMatchNotScheduled     = newError(ErrConflict, "match is not in scheduled state")
	ErrInvalidWinner         = newError(ErrValidation, "winner must be one of the match players")

	ErrLeaderboardEntryNotFound = newError(ErrNotFound, "leaderboard entry not found")
	ErrNegativePoints           = newError(ErrValidation, "points cannot drop below zero")
	ErrPointsOverflow           = newError(ErrValidation, "points exceed the supported range")
)

type categorizedError struct {
	category error
	msg      string
}

func (e *categorizedError) Error() string { return e.msg }
func (e *categorizedError) Unwrap() error { return e.category }

func newError(category error, msg string) error {
	return &categorizedError{category: category, msg: msg}
}

// ValidationError carries per-field messages for a 400 response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func fieldError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// fieldErrors collects validation problems of one input.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// handleRepositoryError translates storage sentinels into service errors.
// Unknown errors are returned unchanged.
func handleRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repositories.ErrUserNotFound), errors.Is(err, repositories.ErrParticipantUserInvalid):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrUserUsernameConflict):
		return ErrUsernameTaken
	case errors.Is(err, repositories.ErrUserEmailConflict):
		return ErrEmailTaken
	case errors.Is(err, repositories.ErrGameNotFound):
		return ErrGameNotFound
	case errors.Is(err, repositories.ErrGameNameConflict):
		return ErrGameNameTaken
	case errors.Is(err, repositories.ErrTournamentNotFound), errors.Is(err, repositories.ErrMatchTournamentInvalid):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentGameInvalid):
		return fieldError("game_id", "game does not exist")
	case errors.Is(err, repositories.ErrTournamentFull):
		return ErrTournamentFull
	case errors.Is(err, repositories.ErrParticipantConflict):
		return ErrAlreadyRegistered
	case errors.Is(err, repositories.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, repositories.ErrProfileGameInvalid):
		return fieldError("main_game_id", "game does not exist")
	case errors.Is(err, repositories.ErrProfileNotFound):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrLeaderboardEntryNotFound):
		return ErrLeaderboardEntryNotFound
	case errors.Is(err, repositories.ErrLeaderboardNegativePoints):
		return ErrNegativePoints
	case errors.Is(err, repositories.ErrLeaderboardPointsOverflow):
		return ErrPointsOverflow
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrMatchPlayerInvalid):
		return fieldError("players", "both players must be existing users")
	case errors.Is(err, repositories.ErrMatchAlreadyCompleted):
		return ErrMatchAlreadyCompleted
	case errors.Is(err, repositories.ErrMatchWinnerInvalid):
		return ErrInvalidWinner
	case errors.Is(err, repositories.ErrMatchStatusConflict):
		return ErrMatchNotScheduled
	}
	return err
}
