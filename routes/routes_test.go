package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dosada05/esports-platform/handlers"
	"github.com/Dosada05/esports-platform/live"
	"github.com/Dosada05/esports-platform/metrics"
	"github.com/Dosada05/esports-platform/middleware"
	"github.com/Dosada05/esports-platform/payments"
	"github.com/Dosada05/esports-platform/repositories"
	"github.com/Dosada05/esports-platform/services"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const testSecret = "test-secret"

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	admin services.AdminService
	down  atomic.Bool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := repositories.NewMemoryStorage()
	hub := live.NewHub(nil)
	m := metrics.New(prometheus.NewRegistry())

	auth := services.NewAuthService(store, testSecret, nil)
	users := services.NewUserService(store, nil, nil)
	games := services.NewGameService(store, nil, nil)
	tournaments := services.NewTournamentService(store, "usd", hub, nil)
	registration := services.NewRegistrationService(store, payments.NewDisabledProcessor(), m, hub, nil)
	matches := services.NewMatchService(store, m, hub, nil)
	leaderboard := services.NewLeaderboardService(store, hub, nil)
	admin := services.NewAdminService(store, nil)

	ts := &testServer{t: t, admin: admin}

	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Auth:        handlers.NewAuthHandler(auth, false),
		User:        handlers.NewUserHandler(users),
		Dashboard:   handlers.NewDashboardHandler(users),
		Game:        handlers.NewGameHandler(games),
		Tournament:  handlers.NewTournamentHandler(tournaments),
		Participant: handlers.NewParticipantHandler(tournaments, registration),
		Match:       handlers.NewMatchHandler(matches),
		Payment:     handlers.NewPaymentHandler(registration),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboard),
		Admin:       handlers.NewAdminHandler(admin),
		WebSocket:   handlers.NewWebSocketHandler(hub, tournaments, nil, nil),

		Authenticator: middleware.NewAuthenticator(testSecret, nil),
		AuthLimiter:   middleware.NewIPRateLimiter(rate.Inf, 1),
		Metrics:       m,
		HealthCheck: func(ctx context.Context) error {
			if ts.down.Load() {
				return errors.New("connection refused")
			}
			return nil
		},
	})

	ts.srv = httptest.NewServer(router)
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) do(method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	ts.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(ts.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func (ts *testServer) register(username string) {
	ts.t.Helper()
	resp, body := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(ts.t, http.StatusCreated, resp.StatusCode, body)
}

func (ts *testServer) login(username string) (string, int) {
	ts.t.Helper()
	resp, body := ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(ts.t, http.StatusOK, resp.StatusCode, body)
	user := body["user"].(map[string]interface{})
	return body["token"].(string), int(user["id"].(float64))
}

func (ts *testServer) signup(username string) (string, int) {
	ts.t.Helper()
	ts.register(username)
	return ts.login(username)
}

func (ts *testServer) adminToken() string {
	ts.t.Helper()
	ts.register("boss")
	_, err := ts.admin.PromoteUser(context.Background(), "boss")
	require.NoError(ts.t, err)
	token, _ := ts.login("boss")
	return token
}

func (ts *testServer) createGame(token, name string) int {
	ts.t.Helper()
	resp, body := ts.do(http.MethodPost, "/api/games", token, map[string]string{"name": name, "genre": "fps"})
	require.Equal(ts.t, http.StatusCreated, resp.StatusCode, body)
	return int(body["game"].(map[string]interface{})["id"].(float64))
}

func (ts *testServer) createTournament(token string, gameID, capacity int, entryFee int64) int {
	ts.t.Helper()
	resp, body := ts.do(http.MethodPost, "/api/tournaments", token, map[string]interface{}{
		"title":            fmt.Sprintf("Cup %d", time.Now().UnixNano()),
		"game_id":          gameID,
		"max_participants": capacity,
		"entry_fee":        entryFee,
		"start_date":       time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(ts.t, http.StatusCreated, resp.StatusCode, body)
	return int(body["tournament"].(map[string]interface{})["id"].(float64))
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	ts.register("alice")

	resp, body := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "ALICE",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, body)

	resp, body = ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "password_hash")

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	resp, body = ts.do(http.MethodGet, "/api/auth/me", body["token"].(string), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["user"].(map[string]interface{})["username"])

	resp, _ = ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSessionCookieAuthenticates(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup("carol")

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/profile", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestValidationErrorListsFields(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "a",
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation failed", body["error"])
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestMalformedJSON(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/auth/login", strings.NewReader(`{"username":`))
	require.NoError(t, err)
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAccessControl(t *testing.T) {
	ts := newTestServer(t)
	userToken, _ := ts.signup("dave")

	resp, _ := ts.do(http.MethodGet, "/api/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(http.MethodGet, "/api/dashboard", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(http.MethodPost, "/api/games", userToken, map[string]string{"name": "Valorant", "genre": "fps"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(http.MethodGet, "/api/admin/stats", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	adminToken := ts.adminToken()
	resp, body := ts.do(http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["users_total"])
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(http.MethodGet, "/api/tournaments/999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	resp, _ = ts.do(http.MethodGet, "/api/tournaments/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ts.do(http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestTournamentRegistration(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminToken()
	gameID := ts.createGame(adminToken, "Valorant")
	tournamentID := ts.createTournament(adminToken, gameID, 2, 0)
	path := fmt.Sprintf("/api/tournaments/%d/register", tournamentID)

	first, _ := ts.signup("p1")
	second, _ := ts.signup("p2")
	third, _ := ts.signup("p3")

	resp, body := ts.do(http.MethodPost, path, first, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "active", body["participant"].(map[string]interface{})["status"])

	resp, _ = ts.do(http.MethodPost, path, first, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ts.do(http.MethodPost, fmt.Sprintf("/api/tournaments/%d/join", tournamentID), second, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = ts.do(http.MethodPost, path, third, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = ts.do(http.MethodGet, fmt.Sprintf("/api/tournaments/%d", tournamentID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["tournament"].(map[string]interface{})["current_participants"])

	resp, body = ts.do(http.MethodGet, fmt.Sprintf("/api/tournaments/%d/participants", tournamentID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["participants"], 2)

	resp, _ = ts.do(http.MethodPost, "/api/tournaments/999/register", third, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPaidTournamentRequiresPayment(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminToken()
	gameID := ts.createGame(adminToken, "Fortnite")
	tournamentID := ts.createTournament(adminToken, gameID, 8, 500)
	player, _ := ts.signup("payer")

	resp, body := ts.do(http.MethodPost, fmt.Sprintf("/api/tournaments/%d/register", tournamentID), player, nil)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode, body)

	resp, _ = ts.do(http.MethodPost, "/api/payments/intents", player, map[string]int{"tournament_id": tournamentID})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMatchResultUpdatesLeaderboard(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminToken()
	gameID := ts.createGame(adminToken, "CS:GO")
	tournamentID := ts.createTournament(adminToken, gameID, 4, 0)

	winnerToken, winnerID := ts.signup("winner")
	loserToken, loserID := ts.signup("loser")
	for _, token := range []string{winnerToken, loserToken} {
		resp, _ := ts.do(http.MethodPost, fmt.Sprintf("/api/tournaments/%d/register", tournamentID), token, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := ts.do(http.MethodPost, fmt.Sprintf("/api/tournaments/%d/matches", tournamentID), winnerToken, map[string]int{
		"round": 1, "match_number": 1, "player1_id": winnerID, "player2_id": loserID,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, body)

	resp, body = ts.do(http.MethodPost, fmt.Sprintf("/api/tournaments/%d/matches", tournamentID), adminToken, map[string]int{
		"round": 1, "match_number": 1, "player1_id": winnerID, "player2_id": loserID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	matchID := int(body["match"].(map[string]interface{})["id"].(float64))

	resultPath := fmt.Sprintf("/api/matches/%d/result", matchID)
	resp, body = ts.do(http.MethodPost, resultPath, adminToken, map[string]interface{}{
		"winner_id": winnerID, "score": "2-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	match := body["match"].(map[string]interface{})
	assert.Equal(t, "completed", match["status"])
	assert.EqualValues(t, winnerID, match["winner_id"])

	resp, _ = ts.do(http.MethodPost, resultPath, adminToken, map[string]interface{}{
		"winner_id": winnerID, "score": "2-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = ts.do(http.MethodGet, "/api/leaderboard/top", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := body["leaderboard"].([]interface{})
	require.NotEmpty(t, entries)
	top := entries[0].(map[string]interface{})
	assert.EqualValues(t, winnerID, top["user_id"])
	assert.EqualValues(t, 100, top["points"])
	assert.EqualValues(t, 1, top["rank"])

	resp, body = ts.do(http.MethodGet, fmt.Sprintf("/api/users/%d/leaderboard", loserID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["entry"].(map[string]interface{})["losses"])

	resp, body = ts.do(http.MethodGet, "/api/matches", winnerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["matches"], 1)
}

func TestLeaderboardFilters(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminToken()
	valorant := ts.createGame(adminToken, "Valorant")
	chess := ts.createGame(adminToken, "Chess")
	valorantCup := ts.createTournament(adminToken, valorant, 8, 0)
	chessCup := ts.createTournament(adminToken, chess, 8, 0)

	aimToken, aimID := ts.signup("aim")
	rookToken, rookID := ts.signup("rook")
	resp, _ := ts.do(http.MethodPost, fmt.Sprintf("/api/tournaments/%d/register", valorantCup), aimToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = ts.do(http.MethodPost, fmt.Sprintf("/api/tournaments/%d/register", chessCup), rookToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	userIDs := func(body map[string]interface{}) []int {
		var ids []int
		for _, raw := range body["leaderboard"].([]interface{}) {
			ids = append(ids, int(raw.(map[string]interface{})["user_id"].(float64)))
		}
		return ids
	}

	for _, param := range []string{"game", "game_id", "gameId"} {
		resp, body := ts.do(http.MethodGet, fmt.Sprintf("/api/leaderboard?%s=%d", param, valorant), "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.Equal(t, []int{aimID}, userIDs(body), param)
	}

	resp, body := ts.do(http.MethodGet, fmt.Sprintf("/api/leaderboard?gameId=%d", chess), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int{rookID}, userIDs(body))

	resp, body = ts.do(http.MethodGet, "/api/leaderboard?game=all", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, userIDs(body), 3)

	resp, _ = ts.do(http.MethodGet, "/api/leaderboard?game=valorant", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(http.MethodGet, "/api/leaderboard?region=ZZ", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegistrationClosedAfterStart(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminToken()
	gameID := ts.createGame(adminToken, "Dota 2")
	tournamentID := ts.createTournament(adminToken, gameID, 8, 0)
	player, _ := ts.signup("latecomer")

	resp, body := ts.do(http.MethodPatch, fmt.Sprintf("/api/tournaments/%d/status", tournamentID), adminToken, map[string]string{"status": "live"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = ts.do(http.MethodPost, fmt.Sprintf("/api/tournaments/%d/register", tournamentID), player, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, body)
}

func TestReferenceData(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/countries", "/api/regions"} {
		resp, err := ts.srv.Client().Get(ts.srv.URL + path)
		require.NoError(t, err)
		var list []map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, list)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	ts.down.Store(true)
	resp, _ = ts.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err := ts.srv.Client().Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `esports_http_requests_total{code="200",method="GET",route="/healthz"}`)
}
