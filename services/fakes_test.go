package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/esports-platform/live"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/payments"
	"github.com/Dosada05/esports-platform/repositories"
	"github.com/Dosada05/esports-platform/storage"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	mu      sync.Mutex
	intents map[string]*payments.PaymentIntent
	created []payments.CreateIntentParams
	seq     int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{intents: make(map[string]*payments.PaymentIntent)}
}

func (p *fakeProcessor) CreatePaymentIntent(ctx context.Context, params payments.CreateIntentParams) (*payments.PaymentIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	intent := &payments.PaymentIntent{
		ID:           fmt.Sprintf("pi_%d", p.seq),
		ClientSecret: fmt.Sprintf("pi_%d_secret", p.seq),
		Amount:       params.Amount,
		Currency:     params.Currency,
		Status:       "requires_payment_method",
		Metadata:     params.Metadata(),
	}
	p.intents[intent.ID] = intent
	p.created = append(p.created, params)
	c := *intent
	return &c, nil
}

func (p *fakeProcessor) GetPaymentIntent(ctx context.Context, id string) (*payments.PaymentIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent, ok := p.intents[id]
	if !ok {
		return nil, payments.ErrIntentNotFound
	}
	c := *intent
	return &c, nil
}

// put stores a ready intent, as if the user completed the hosted payment flow.
func (p *fakeProcessor) put(id string, amount int64, currency string, tournamentID, userID int, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[id] = &payments.PaymentIntent{
		ID:       id,
		Amount:   amount,
		Currency: currency,
		Status:   status,
		Metadata: map[string]string{
			payments.MetadataTournamentID: strconv.Itoa(tournamentID),
			payments.MetadataUserID:       strconv.Itoa(userID),
		},
	}
}

type recordingHub struct {
	mu       sync.Mutex
	messages map[string][]live.Message
}

func newRecordingHub() *recordingHub {
	return &recordingHub{messages: make(map[string][]live.Message)}
}

func (h *recordingHub) BroadcastToRoom(roomID string, msg live.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages[roomID] = append(h.messages[roomID], msg)
}

func (h *recordingHub) types(roomID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.messages[roomID]))
	for _, m := range h.messages[roomID] {
		out = append(out, m.Type)
	}
	return out
}

type countingRecorder struct {
	mu            sync.Mutex
	registrations map[string]int
	matchResults  int
	reconciled    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{registrations: make(map[string]int)}
}

func (r *countingRecorder) Registration(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[outcome]++
}

func (r *countingRecorder) MatchResult() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matchResults++
}

func (r *countingRecorder) Reconciled(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciled += n
}

type fakeUploader struct {
	uploaded map[string]string
	deleted  []string
	failWith error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploaded: make(map[string]string)}
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, r io.Reader) (*storage.UploadResult, error) {
	if u.failWith != nil {
		return nil, u.failWith
	}
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	u.uploaded[key] = contentType
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

// env wires every service on top of one memory storage.
type env struct {
	store        repositories.Storage
	processor    *fakeProcessor
	hub          *recordingHub
	recorder     *countingRecorder
	uploader     *fakeUploader
	auth         AuthService
	users        UserService
	games        GameService
	tournaments  TournamentService
	registration RegistrationService
	matches      MatchService
	leaderboard  LeaderboardService
	admin        AdminService
	seq          int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:     repositories.NewMemoryStorage(),
		processor: newFakeProcessor(),
		hub:       newRecordingHub(),
		recorder:  newCountingRecorder(),
		uploader:  newFakeUploader(),
	}
	auth := NewAuthService(e.store, "test-secret", nil)
	auth.(*authService).hashCost = 4 // bcrypt.MinCost
	e.auth = auth
	e.users = NewUserService(e.store, e.uploader, nil)
	e.games = NewGameService(e.store, e.uploader, nil)
	e.tournaments = NewTournamentService(e.store, "usd", e.hub, nil)
	e.registration = NewRegistrationService(e.store, e.processor, e.recorder, e.hub, nil)
	e.matches = NewMatchService(e.store, e.recorder, e.hub, nil)
	e.leaderboard = NewLeaderboardService(e.store, e.hub, nil)
	e.admin = NewAdminService(e.store, nil)
	return e
}

func (e *env) user(t *testing.T) *models.User {
	t.Helper()
	e.seq++
	u, err := e.auth.Register(context.Background(), RegisterUserInput{
		Username: fmt.Sprintf("player_%d", e.seq),
		Email:    fmt.Sprintf("player%d@example.com", e.seq),
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return u
}

func (e *env) game(t *testing.T, name, genre string) *models.Game {
	t.Helper()
	g, err := e.games.CreateGame(context.Background(), CreateGameInput{Name: name, Genre: genre})
	require.NoError(t, err)
	return g
}

func (e *env) tournament(t *testing.T, owner *models.User, capacity int, entryFee int64) *models.Tournament {
	t.Helper()
	e.seq++
	g := e.game(t, fmt.Sprintf("Game %d", e.seq), "fps")
	tr, err := e.tournaments.CreateTournament(context.Background(), Actor{UserID: owner.ID, Role: owner.Role}, CreateTournamentInput{
		Title:           fmt.Sprintf("Weekly Cup %d", e.seq),
		GameID:          g.ID,
		EntryFee:        entryFee,
		MaxParticipants: capacity,
		StartDate:       time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return tr
}

func (e *env) join(tournamentID, userID int) error {
	_, err := e.registration.Register(context.Background(), RegisterInput{TournamentID: tournamentID, UserID: userID})
	return err
}

func actorOf(u *models.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}
