package services

import (
	"context"
	"sync"
	"testing"

	"github.com/Dosada05/esports-platform/live"
	"github.com/Dosada05/esports-platform/metrics"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/payments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistration_CapacityAndDuplicates(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t)
	tr := e.tournament(t, owner, 2, 0)
	a, b, c := e.user(t), e.user(t), e.user(t)

	require.NoError(t, e.join(tr.ID, a.ID))
	require.NoError(t, e.join(tr.ID, b.ID))

	err := e.join(tr.ID, c.ID)
	assert.ErrorIs(t, err, ErrTournamentFull)
	assert.ErrorIs(t, err, ErrCapacity)

	err = e.join(tr.ID, a.ID)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := e.tournaments.GetTournament(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentParticipants)
	require.NotNil(t, got.Game)

	assert.Equal(t, 2, e.recorder.registrations[metrics.OutcomeRegistered])
	assert.Equal(t, 1, e.recorder.registrations[metrics.OutcomeFull])
	assert.Equal(t, 1, e.recorder.registrations[metrics.OutcomeDuplicate])
	assert.Equal(t, []string{live.TypeParticipantJoined, live.TypeParticipantJoined}, e.hub.types(live.TournamentRoom(tr.ID)))
}

func TestRegistration_UnknownTournamentAndClosed(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t)
	u := e.user(t)

	assert.ErrorIs(t, e.join(9999, u.ID), ErrTournamentNotFound)

	tr := e.tournament(t, owner, 4, 0)
	_, err := e.tournaments.UpdateStatus(context.Background(), actorOf(owner), tr.ID, models.StatusLive)
	require.NoError(t, err)
	assert.ErrorIs(t, e.join(tr.ID, u.ID), ErrRegistrationClosed)
}

func TestRegistration_ConcurrentJoinsRespectCapacity(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t)
	tr := e.tournament(t, owner, 5, 0)
	users := make([]*models.User, 20)
	for i := range users {
		users[i] = e.user(t)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(users))
	for i, u := range users {
		wg.Add(1)
		go func(i, userID int) {
			defer wg.Done()
			errs[i] = e.join(tr.ID, userID)
		}(i, u.ID)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrCapacity)
		}
	}
	assert.Equal(t, 5, ok)

	participants, err := e.tournaments.ListParticipants(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 5)
}

func TestRegistration_Payment(t *testing.T) {
	ctx := context.Background()

	t.Run("missing proof", func(t *testing.T) {
		e := newEnv(t)
		tr := e.tournament(t, e.user(t), 4, 500)
		err := e.join(tr.ID, e.user(t).ID)
		assert.ErrorIs(t, err, ErrEntryFeeUnpaid)
		assert.ErrorIs(t, err, ErrPaymentRequired)
		assert.Equal(t, 1, e.recorder.registrations[metrics.OutcomePaymentRequired])
	})

	t.Run("metadata for another user", func(t *testing.T) {
		e := newEnv(t)
		tr := e.tournament(t, e.user(t), 4, 500)
		u, other := e.user(t), e.user(t)
		e.processor.put("pi_other", 500, "usd", tr.ID, other.ID, payments.StatusSucceeded)

		id := "pi_other"
		_, err := e.registration.Register(ctx, RegisterInput{TournamentID: tr.ID, UserID: u.ID, PaymentIntentID: &id})
		assert.ErrorIs(t, err, ErrPaymentMismatch)
		assert.ErrorIs(t, err, ErrPaymentInvalid)
	})

	t.Run("metadata for another tournament", func(t *testing.T) {
		e := newEnv(t)
		owner := e.user(t)
		tr := e.tournament(t, owner, 4, 500)
		u := e.user(t)
		e.processor.put("pi_t", 500, "usd", tr.ID+1, u.ID, payments.StatusSucceeded)

		id := "pi_t"
		_, err := e.registration.Register(ctx, RegisterInput{TournamentID: tr.ID, UserID: u.ID, PaymentIntentID: &id})
		assert.ErrorIs(t, err, ErrPaymentMismatch)
	})

	t.Run("wrong amount", func(t *testing.T) {
		e := newEnv(t)
		tr := e.tournament(t, e.user(t), 4, 500)
		u := e.user(t)
		e.processor.put("pi_cheap", 100, "usd", tr.ID, u.ID, payments.StatusSucceeded)

		id := "pi_cheap"
		_, err := e.registration.Register(ctx, RegisterInput{TournamentID: tr.ID, UserID: u.ID, PaymentIntentID: &id})
		assert.ErrorIs(t, err, ErrPaymentMismatch)
	})

	t.Run("unknown intent", func(t *testing.T) {
		e := newEnv(t)
		tr := e.tournament(t, e.user(t), 4, 500)
		id := "pi_missing"
		_, err := e.registration.Register(ctx, RegisterInput{TournamentID: tr.ID, UserID: e.user(t).ID, PaymentIntentID: &id})
		assert.ErrorIs(t, err, ErrPaymentInvalid)
	})

	t.Run("not succeeded", func(t *testing.T) {
		e := newEnv(t)
		tr := e.tournament(t, e.user(t), 4, 500)
		u := e.user(t)
		e.processor.put("pi_pending", 500, "usd", tr.ID, u.ID, "processing")

		id := "pi_pending"
		_, err := e.registration.Register(ctx, RegisterInput{TournamentID: tr.ID, UserID: u.ID, PaymentIntentID: &id})
		assert.ErrorIs(t, err, ErrPaymentIncomplete)
	})

	t.Run("matching succeeded payment", func(t *testing.T) {
		e := newEnv(t)
		tr := e.tournament(t, e.user(t), 4, 500)
		u := e.user(t)
		e.processor.put("pi_ok", 500, "USD", tr.ID, u.ID, payments.StatusSucceeded)

		id := "pi_ok"
		p, err := e.registration.Register(ctx, RegisterInput{TournamentID: tr.ID, UserID: u.ID, PaymentIntentID: &id})
		require.NoError(t, err)
		require.NotNil(t, p.PaymentIntentID)
		assert.Equal(t, "pi_ok", *p.PaymentIntentID)
		assert.Equal(t, models.ParticipantActive, p.Status)
	})

	t.Run("processor not configured", func(t *testing.T) {
		e := newEnv(t)
		e.registration = NewRegistrationService(e.store, payments.NewDisabledProcessor(), nil, nil, nil)
		tr := e.tournament(t, e.user(t), 4, 500)
		id := "pi_any"
		_, err := e.registration.Register(ctx, RegisterInput{TournamentID: tr.ID, UserID: e.user(t).ID, PaymentIntentID: &id})
		assert.ErrorIs(t, err, ErrPaymentsDisabled)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("full beats payment check", func(t *testing.T) {
		e := newEnv(t)
		tr := e.tournament(t, e.user(t), 1, 500)
		first := e.user(t)
		e.processor.put("pi_first", 500, "usd", tr.ID, first.ID, payments.StatusSucceeded)
		id := "pi_first"
		_, err := e.registration.Register(ctx, RegisterInput{TournamentID: tr.ID, UserID: first.ID, PaymentIntentID: &id})
		require.NoError(t, err)

		assert.ErrorIs(t, e.join(tr.ID, e.user(t).ID), ErrTournamentFull)
	})
}

func TestRegistration_CreatePaymentIntent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t)
	u := e.user(t)

	free := e.tournament(t, owner, 4, 0)
	_, err := e.registration.CreatePaymentIntent(ctx, u.ID, free.ID)
	assert.ErrorIs(t, err, ErrNoEntryFee)

	_, err = e.registration.CreatePaymentIntent(ctx, u.ID, 9999)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	paid := e.tournament(t, owner, 4, 1500)
	intent, err := e.registration.CreatePaymentIntent(ctx, u.ID, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), intent.Amount)
	assert.Equal(t, "usd", intent.Currency)
	assert.NotEmpty(t, intent.ClientSecret)
	require.Len(t, e.processor.created, 1)
	assert.Equal(t, paid.ID, e.processor.created[0].TournamentID)
	assert.Equal(t, u.ID, e.processor.created[0].UserID)

	// Оплата, созданная через сервис, после успеха подходит для регистрации.
	e.processor.intents[intent.ID].Status = payments.StatusSucceeded
	_, err = e.registration.Register(ctx, RegisterInput{TournamentID: paid.ID, UserID: u.ID, PaymentIntentID: &intent.ID})
	assert.NoError(t, err)
}
