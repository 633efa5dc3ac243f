package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/esports-platform/models"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storageFactory returns an empty Storage for every call.
type storageFactory func(t *testing.T) Storage

type fixtures struct {
	t     *testing.T
	s     Storage
	faker *gofakeit.Faker
	seq   int
}

func newFixtures(t *testing.T, s Storage) *fixtures {
	return &fixtures{t: t, s: s, faker: gofakeit.New(int64(len(t.Name())))}
}

func (f *fixtures) user(username string) *models.User {
	f.t.Helper()
	f.seq++
	if username == "" {
		username = fmt.Sprintf("%s%d", f.faker.Username(), f.seq)
	}
	u := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%d.%s", f.seq, f.faker.Email()),
		PasswordHash: "hash",
	}
	require.NoError(f.t, f.s.CreateUser(context.Background(), u))
	return u
}

func (f *fixtures) game(name, genre string) *models.Game {
	f.t.Helper()
	g := &models.Game{Name: name, Slug: name, Genre: genre, Active: true}
	require.NoError(f.t, f.s.CreateGame(context.Background(), g))
	return g
}

func (f *fixtures) tournament(gameID, creatorID, capacity int, prizePool int64) *models.Tournament {
	f.t.Helper()
	f.seq++
	tr := &models.Tournament{
		GameID:          gameID,
		Title:           fmt.Sprintf("Cup %d", f.seq),
		Slug:            fmt.Sprintf("cup-%d", f.seq),
		PrizePool:       prizePool,
		Currency:        "usd",
		TeamSize:        1,
		MaxParticipants: capacity,
		StartDate:       time.Now().UTC().Add(time.Duration(f.seq) * time.Hour),
		CreatedBy:       creatorID,
	}
	require.NoError(f.t, f.s.CreateTournament(context.Background(), tr))
	return tr
}

func (f *fixtures) register(tournamentID, userID int) error {
	return f.s.RegisterParticipant(context.Background(), &models.Participant{TournamentID: tournamentID, UserID: userID})
}

func (f *fixtures) match(tournamentID, p1, p2 int) *models.Match {
	f.t.Helper()
	m := &models.Match{TournamentID: tournamentID, Round: 1, MatchNumber: 1, Player1ID: p1, Player2ID: p2}
	require.NoError(f.t, f.s.CreateMatch(context.Background(), m))
	return m
}

func (f *fixtures) entry(userID int) *models.LeaderboardEntry {
	f.t.Helper()
	e, err := f.s.GetLeaderboardEntry(context.Background(), userID)
	require.NoError(f.t, err)
	return e
}

func runStorageSuite(t *testing.T, newStorage storageFactory) {
	ctx := context.Background()

	t.Run("create user creates zero leaderboard entry", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		a := f.user("alice")
		b := f.user("bob")

		ea := f.entry(a.ID)
		assert.Equal(t, 0, ea.Points)
		assert.Equal(t, 0, ea.Wins)
		assert.Equal(t, 0, ea.Losses)
		assert.Equal(t, 1, ea.Rank)
		assert.Equal(t, "alice", ea.Username)
		assert.Equal(t, 2, f.entry(b.ID).Rank)

		n, err := f.s.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("usernames and emails are unique case-insensitively", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		u := f.user("Alice")

		err := f.s.CreateUser(ctx, &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, ErrUserUsernameConflict)

		err = f.s.CreateUser(ctx, &models.User{Username: "carol", Email: strings.ToUpper(u.Email), PasswordHash: "x"})
		assert.ErrorIs(t, err, ErrUserEmailConflict)

		got, err := f.s.GetUserByUsername(ctx, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, models.RoleUser, got.Role)

		_, err = f.s.GetUserByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = f.s.GetUserByID(ctx, 9999)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("user updates", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		u := f.user("")
		at := time.Now().UTC().Truncate(time.Second)

		require.NoError(t, f.s.UpdateLastLogin(ctx, u.ID, at))
		require.NoError(t, f.s.UpdateUserRole(ctx, u.ID, models.RoleAdmin))

		got, err := f.s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastLoginAt)
		assert.True(t, at.Equal(*got.LastLoginAt))
		assert.Equal(t, models.RoleAdmin, got.Role)

		assert.ErrorIs(t, f.s.UpdateUserRole(ctx, 9999, models.RoleAdmin), ErrUserNotFound)
	})

	t.Run("returned values are copies", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		u := f.user("copycat")

		got, err := f.s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		got.Username = "mutated"

		again, err := f.s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "copycat", again.Username)
	})

	t.Run("games filter and sort", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		valorant := f.game("Valorant", "fps")
		fortnite := f.game("Fortnite", "battle-royale")
		csgo := f.game("CS:GO", "fps")
		lol := f.game("League of Legends", "moba")

		// csgo: two tournaments, lol: biggest prize pool, fortnite: most players
		f.tournament(csgo.ID, owner.ID, 8, 100)
		f.tournament(csgo.ID, owner.ID, 8, 100)
		f.tournament(lol.ID, owner.ID, 8, 50000)
		fn := f.tournament(fortnite.ID, owner.ID, 8, 0)
		for i := 0; i < 3; i++ {
			require.NoError(t, f.register(fn.ID, f.user("").ID))
		}

		all, err := f.s.ListGames(ctx, ListGamesFilter{Genre: "all"})
		require.NoError(t, err)
		assert.Equal(t, []int{valorant.ID, fortnite.ID, csgo.ID, lol.ID}, gameIDs(all))

		fps, err := f.s.ListGames(ctx, ListGamesFilter{Genre: "FPS"})
		require.NoError(t, err)
		assert.Equal(t, []int{valorant.ID, csgo.ID}, gameIDs(fps))

		none, err := f.s.ListGames(ctx, ListGamesFilter{Genre: "racing"})
		require.NoError(t, err)
		assert.Empty(t, none)

		popular, err := f.s.ListGames(ctx, ListGamesFilter{Sort: models.GameSortPopular})
		require.NoError(t, err)
		assert.Equal(t, fortnite.ID, popular[0].ID)
		assert.Equal(t, 3, popular[0].ActivePlayers)

		byTournaments, err := f.s.ListGames(ctx, ListGamesFilter{Sort: models.GameSortTournaments})
		require.NoError(t, err)
		assert.Equal(t, csgo.ID, byTournaments[0].ID)
		assert.Equal(t, 2, byTournaments[0].TournamentCount)

		byPrize, err := f.s.ListGames(ctx, ListGamesFilter{Sort: models.GameSortPrizePool})
		require.NoError(t, err)
		assert.Equal(t, lol.ID, byPrize[0].ID)
		assert.Equal(t, int64(50000), byPrize[0].TotalPrizePool)

		newest, err := f.s.ListGames(ctx, ListGamesFilter{Sort: models.GameSortNewest})
		require.NoError(t, err)
		assert.Equal(t, lol.ID, newest[0].ID)

		genres, err := f.s.ListGenres(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"battle-royale", "fps", "moba"}, genres)

		err = f.s.CreateGame(ctx, &models.Game{Name: "valorant", Slug: "valorant-2", Genre: "fps"})
		assert.ErrorIs(t, err, ErrGameNameConflict)

		_, err = f.s.GetGameByID(ctx, 9999)
		assert.ErrorIs(t, err, ErrGameNotFound)
	})

	t.Run("create tournament", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		g := f.game("Valorant", "fps")

		tr := f.tournament(g.ID, owner.ID, 16, 1000)
		assert.NotZero(t, tr.ID)
		assert.Equal(t, models.StatusUpcoming, tr.Status)
		assert.Equal(t, 0, tr.CurrentParticipants)

		got, err := f.s.GetTournamentByID(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, tr.Title, got.Title)
		assert.Equal(t, 16, got.MaxParticipants)

		bad := &models.Tournament{GameID: 9999, Title: "x", Slug: "x", Currency: "usd", TeamSize: 1, MaxParticipants: 2, StartDate: time.Now(), CreatedBy: owner.ID}
		assert.ErrorIs(t, f.s.CreateTournament(ctx, bad), ErrTournamentGameInvalid)

		_, err = f.s.GetTournamentByID(ctx, 9999)
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})

	t.Run("list tournaments with filters", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		g1 := f.game("Valorant", "fps")
		g2 := f.game("Fortnite", "battle-royale")
		a := f.tournament(g1.ID, owner.ID, 4, 0)
		b := f.tournament(g2.ID, owner.ID, 4, 0)
		c := f.tournament(g1.ID, owner.ID, 4, 0)
		require.NoError(t, f.s.UpdateTournamentStatus(ctx, c.ID, models.StatusLive))

		all, err := f.s.ListTournaments(ctx, ListTournamentsFilter{})
		require.NoError(t, err)
		assert.Equal(t, []int{a.ID, b.ID, c.ID}, tournamentIDs(all))

		live := models.StatusLive
		onlyLive, err := f.s.ListTournaments(ctx, ListTournamentsFilter{Status: &live})
		require.NoError(t, err)
		assert.Equal(t, []int{c.ID}, tournamentIDs(onlyLive))

		byGame, err := f.s.ListTournaments(ctx, ListTournamentsFilter{GameID: &g1.ID})
		require.NoError(t, err)
		assert.Equal(t, []int{a.ID, c.ID}, tournamentIDs(byGame))

		page, err := f.s.ListTournaments(ctx, ListTournamentsFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []int{b.ID}, tournamentIDs(page))

		n, err := f.s.CountTournaments(ctx, &live)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		assert.ErrorIs(t, f.s.UpdateTournamentStatus(ctx, 9999, models.StatusLive), ErrTournamentNotFound)
	})

	t.Run("capacity and duplicate registration", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		g := f.game("Valorant", "fps")
		tr := f.tournament(g.ID, owner.ID, 2, 0)
		a, b, c := f.user("a-player"), f.user("b-player"), f.user("c-player")

		require.NoError(t, f.register(tr.ID, a.ID))
		require.NoError(t, f.register(tr.ID, b.ID))
		assert.ErrorIs(t, f.register(tr.ID, c.ID), ErrTournamentFull)
		assert.ErrorIs(t, f.register(tr.ID, a.ID), ErrParticipantConflict)

		got, err := f.s.GetTournamentByID(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.CurrentParticipants)

		participants, err := f.s.ListParticipantsByTournament(ctx, tr.ID)
		require.NoError(t, err)
		require.Len(t, participants, 2)
		assert.Equal(t, a.ID, participants[0].UserID)
		assert.Equal(t, models.ParticipantActive, participants[0].Status)
		require.NotNil(t, participants[0].User)
		assert.Equal(t, "a-player", participants[0].User.Username)

		registered, err := f.s.IsUserRegistered(ctx, c.ID, tr.ID)
		require.NoError(t, err)
		assert.False(t, registered)

		assert.ErrorIs(t, f.register(9999, a.ID), ErrTournamentNotFound)

		mine, err := f.s.ListTournamentsByUser(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{tr.ID}, tournamentIDs(mine))
	})

	t.Run("registration updates profile", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		g := f.game("Valorant", "fps")
		first := f.tournament(g.ID, owner.ID, 4, 0)
		second := f.tournament(g.ID, owner.ID, 4, 0)
		u := f.user("")

		require.NoError(t, f.register(first.ID, u.ID))
		require.NoError(t, f.register(second.ID, u.ID))

		p, err := f.s.GetOrCreateProfile(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, p.TotalTournaments)
		require.Len(t, p.RecentActivity, 2)
		assert.Equal(t, "Joined tournament: "+second.Title, p.RecentActivity[0].Description)
		assert.Equal(t, "Joined tournament: "+first.Title, p.RecentActivity[1].Description)
		require.Len(t, p.GameStats, 1)
		assert.Equal(t, 2, p.GameStats[0].Tournaments)
		assert.True(t, p.HasAchievement("first_tournament"))
	})

	t.Run("concurrent registrations never exceed capacity", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		g := f.game("Valorant", "fps")
		tr := f.tournament(g.ID, owner.ID, 5, 0)

		users := make([]*models.User, 20)
		for i := range users {
			users[i] = f.user("")
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		successes, full := 0, 0
		for _, u := range users {
			wg.Add(1)
			go func(userID int) {
				defer wg.Done()
				err := f.register(tr.ID, userID)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, ErrTournamentFull):
					full++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(u.ID)
		}
		wg.Wait()

		assert.Equal(t, 5, successes)
		assert.Equal(t, 15, full)

		got, err := f.s.GetTournamentByID(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.CurrentParticipants)

		participants, err := f.s.ListParticipantsByTournament(ctx, tr.ID)
		require.NoError(t, err)
		assert.Len(t, participants, 5)
	})

	t.Run("concurrent duplicate registrations create one row", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		g := f.game("Valorant", "fps")
		tr := f.tournament(g.ID, owner.ID, 50, 0)
		u := f.user("")

		var wg sync.WaitGroup
		var mu sync.Mutex
		successes := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := f.register(tr.ID, u.ID)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					successes++
				} else if !errors.Is(err, ErrParticipantConflict) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		got, err := f.s.GetTournamentByID(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.CurrentParticipants)
	})

	t.Run("concurrent user creation keeps ranks a permutation", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		const n = 12

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				u := &models.User{Username: fmt.Sprintf("rush%d", i), Email: fmt.Sprintf("rush%d@example.com", i), PasswordHash: "x"}
				if err := f.s.CreateUser(ctx, u); err != nil {
					t.Errorf("create user %d: %v", i, err)
				}
			}(i)
		}
		wg.Wait()

		entries, err := f.s.GetLeaderboard(ctx, LeaderboardFilter{})
		require.NoError(t, err)
		require.Len(t, entries, n)
		for i, e := range entries {
			assert.Equal(t, i+1, e.Rank)
		}
	})

	t.Run("reconcile during registrations keeps counters exact", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		g := f.game("Valorant", "fps")
		tr := f.tournament(g.ID, owner.ID, 5, 0)

		users := make([]*models.User, 15)
		for i := range users {
			users[i] = f.user("")
		}

		var wg sync.WaitGroup
		for _, u := range users {
			wg.Add(2)
			go func(userID int) {
				defer wg.Done()
				if err := f.register(tr.ID, userID); err != nil && !errors.Is(err, ErrTournamentFull) {
					t.Errorf("unexpected error: %v", err)
				}
			}(u.ID)
			go func() {
				defer wg.Done()
				if _, err := f.s.ReconcileParticipantCounts(ctx); err != nil {
					t.Errorf("reconcile: %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := f.s.GetTournamentByID(ctx, tr.ID)
		require.NoError(t, err)
		participants, err := f.s.ListParticipantsByTournament(ctx, tr.ID)
		require.NoError(t, err)
		assert.Len(t, participants, 5)
		assert.Equal(t, len(participants), got.CurrentParticipants)

		fixed, err := f.s.ReconcileParticipantCounts(ctx)
		require.NoError(t, err)
		assert.Zero(t, fixed)
	})

	t.Run("participant status keeps counter in sync", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		g := f.game("Valorant", "fps")
		tr := f.tournament(g.ID, owner.ID, 1, 0)
		a, b := f.user(""), f.user("")
		require.NoError(t, f.register(tr.ID, a.ID))

		p, err := f.s.UpdateParticipantStatus(ctx, tr.ID, a.ID, models.ParticipantDisqualified)
		require.NoError(t, err)
		assert.Equal(t, models.ParticipantDisqualified, p.Status)

		got, err := f.s.GetTournamentByID(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.CurrentParticipants)

		require.NoError(t, f.register(tr.ID, b.ID))
		_, err = f.s.UpdateParticipantStatus(ctx, tr.ID, a.ID, models.ParticipantActive)
		assert.ErrorIs(t, err, ErrTournamentFull)

		_, err = f.s.UpdateParticipantStatus(ctx, tr.ID, 9999, models.ParticipantActive)
		assert.ErrorIs(t, err, ErrParticipantNotFound)

		fixed, err := f.s.ReconcileParticipantCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, fixed)
	})

	t.Run("match result updates leaderboard once", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		g := f.game("Valorant", "fps")
		tr := f.tournament(g.ID, owner.ID, 8, 0)
		x, y, z := f.user("x-player"), f.user("y-player"), f.user("z-player")
		m := f.match(tr.ID, x.ID, y.ID)

		p1, p2 := 2, 1
		score := "2-1"
		at := time.Now().UTC().Truncate(time.Second)
		updated, err := f.s.ApplyMatchResult(ctx, models.MatchResult{
			MatchID: m.ID, WinnerID: x.ID, Player1Score: &p1, Player2Score: &p2, Score: &score, At: at,
		})
		require.NoError(t, err)
		require.NotNil(t, updated.WinnerID)
		assert.Equal(t, x.ID, *updated.WinnerID)
		require.NotNil(t, updated.LoserID)
		assert.Equal(t, y.ID, *updated.LoserID)
		assert.Equal(t, models.MatchCompleted, updated.Status)

		ex, ey, ez := f.entry(x.ID), f.entry(y.ID), f.entry(z.ID)
		assert.Equal(t, models.WinPoints, ex.Points)
		assert.Equal(t, 1, ex.Wins)
		assert.Equal(t, 100, ex.WinRate)
		assert.Equal(t, 0, ey.Points)
		assert.Equal(t, 1, ey.Losses)
		assert.Equal(t, 0, ez.Points)
		assert.Equal(t, 1, ex.Rank)
		assert.Less(t, ex.Rank, ey.Rank)
		// equal points fall back to the lower user id
		assert.Less(t, ey.Rank, ez.Rank)

		_, err = f.s.ApplyMatchResult(ctx, models.MatchResult{MatchID: m.ID, WinnerID: x.ID, At: at})
		assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
		assert.Equal(t, models.WinPoints, f.entry(x.ID).Points)

		stored, err := f.s.GetMatchByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "2-1", *stored.Score)

		winnerProfile, err := f.s.GetOrCreateProfile(ctx, x.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, winnerProfile.Wins)
		assert.Equal(t, 1, winnerProfile.TotalMatches)
		assert.Equal(t, models.WinPoints, winnerProfile.Points)
		require.NotNil(t, winnerProfile.Rank)
		assert.Equal(t, 1, *winnerProfile.Rank)
		assert.True(t, winnerProfile.HasAchievement("first_victory"))

		loserProfile, err := f.s.GetOrCreateProfile(ctx, y.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, loserProfile.Wins)
		assert.Equal(t, 1, loserProfile.TotalMatches)
	})

	t.Run("match result validation", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		g := f.game("Valorant", "fps")
		tr := f.tournament(g.ID, owner.ID, 8, 0)
		a, b, outsider := f.user(""), f.user(""), f.user("")
		m := f.match(tr.ID, a.ID, b.ID)

		_, err := f.s.ApplyMatchResult(ctx, models.MatchResult{MatchID: m.ID, WinnerID: outsider.ID, At: time.Now()})
		assert.ErrorIs(t, err, ErrMatchWinnerInvalid)
		_, err = f.s.ApplyMatchResult(ctx, models.MatchResult{MatchID: 9999, WinnerID: a.ID, At: time.Now()})
		assert.ErrorIs(t, err, ErrMatchNotFound)

		assert.Equal(t, 0, f.entry(outsider.ID).Points)
		assert.Equal(t, 0, f.entry(a.ID).Points)

		err = f.s.CreateMatch(ctx, &models.Match{TournamentID: 9999, Round: 1, MatchNumber: 1, Player1ID: a.ID, Player2ID: b.ID})
		assert.ErrorIs(t, err, ErrMatchTournamentInvalid)
	})

	t.Run("start match and list history", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		g := f.game("Valorant", "fps")
		tr := f.tournament(g.ID, owner.ID, 8, 0)
		a, b, c := f.user(""), f.user(""), f.user("")
		first := f.match(tr.ID, a.ID, b.ID)
		second := &models.Match{TournamentID: tr.ID, Round: 1, MatchNumber: 2, Player1ID: c.ID, Player2ID: a.ID}
		require.NoError(t, f.s.CreateMatch(ctx, second))

		started, err := f.s.StartMatch(ctx, first.ID, time.Now().UTC())
		require.NoError(t, err)
		assert.Equal(t, models.MatchLive, started.Status)
		_, err = f.s.StartMatch(ctx, first.ID, time.Now().UTC())
		assert.ErrorIs(t, err, ErrMatchStatusConflict)

		history, err := f.s.ListMatchesByUser(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, second.ID, history[0].ID)

		inTournament, err := f.s.ListMatchesByTournament(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{first.ID, second.ID}, []int{inTournament[0].ID, inTournament[1].ID})

		n, err := f.s.CountMatches(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("adjust points recomputes ranks", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		a, b := f.user(""), f.user("")

		e, err := f.s.AdjustPoints(ctx, b.ID, 50)
		require.NoError(t, err)
		assert.Equal(t, 50, e.Points)
		assert.Equal(t, 1, e.Rank)
		assert.Equal(t, 2, f.entry(a.ID).Rank)

		_, err = f.s.AdjustPoints(ctx, b.ID, -51)
		assert.ErrorIs(t, err, ErrLeaderboardNegativePoints)
		assert.Equal(t, 50, f.entry(b.ID).Points)

		_, err = f.s.AdjustPoints(ctx, b.ID, MaxLeaderboardPoints)
		assert.ErrorIs(t, err, ErrLeaderboardPointsOverflow)
		assert.Equal(t, 50, f.entry(b.ID).Points)

		_, err = f.s.AdjustPoints(ctx, b.ID, -20)
		require.NoError(t, err)
		p, err := f.s.GetOrCreateProfile(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 30, p.Points)

		_, err = f.s.AdjustPoints(ctx, 9999, 10)
		assert.ErrorIs(t, err, ErrLeaderboardEntryNotFound)
	})

	t.Run("leaderboard filter and limit", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		us, de := "US", "DE"
		for i := 0; i < 3; i++ {
			f.seq++
			u := &models.User{Username: fmt.Sprintf("us%d", i), Email: fmt.Sprintf("us%d@example.com", i), PasswordHash: "x", Country: &us}
			require.NoError(t, f.s.CreateUser(ctx, u))
		}
		g := &models.User{Username: "berlin", Email: "berlin@example.com", PasswordHash: "x", Country: &de}
		require.NoError(t, f.s.CreateUser(ctx, g))
		_, err := f.s.AdjustPoints(ctx, g.ID, 10)
		require.NoError(t, err)

		top, err := f.s.GetLeaderboard(ctx, LeaderboardFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, g.ID, top[0].UserID)
		assert.Equal(t, 1, top[0].Rank)

		american, err := f.s.GetLeaderboard(ctx, LeaderboardFilter{Country: "us"})
		require.NoError(t, err)
		assert.Len(t, american, 3)
		for i := 1; i < len(american); i++ {
			assert.GreaterOrEqual(t, american[i-1].Points, american[i].Points)
			assert.Less(t, american[i-1].Rank, american[i].Rank)
		}
	})

	t.Run("returned records do not alias stored state", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		country, bio := "DE", "support main"
		u := &models.User{Username: "mika", Email: "mika@example.com", PasswordHash: "x", Country: &country, Bio: &bio}
		require.NoError(t, f.s.CreateUser(ctx, u))
		country, bio = "XX", "changed"

		got, err := f.s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Country)
		assert.Equal(t, "DE", *got.Country)
		assert.Equal(t, "support main", *got.Bio)

		*got.Country = "FR"
		again, err := f.s.GetUserByUsername(ctx, "mika")
		require.NoError(t, err)
		assert.Equal(t, "DE", *again.Country)
		assert.Equal(t, "DE", *f.entry(u.ID).Country)

		g := f.game("Valorant", "fps")
		region := "eu"
		tr := &models.Tournament{
			GameID: g.ID, Title: "Region Cup", Slug: "region-cup", Currency: "usd", TeamSize: 1,
			MaxParticipants: 4, StartDate: time.Now().UTC().Add(time.Hour), CreatedBy: u.ID, Region: &region,
		}
		require.NoError(t, f.s.CreateTournament(ctx, tr))
		region = "na"
		fetched, err := f.s.GetTournamentByID(ctx, tr.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched.Region)
		assert.Equal(t, "eu", *fetched.Region)
	})

	t.Run("leaderboard game filter", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		owner := f.user("")
		valorant := f.game("Valorant", "fps")
		chess := f.game("Chess", "strategy")
		a, b, c := f.user(""), f.user(""), f.user("")
		v1 := f.tournament(valorant.ID, owner.ID, 8, 0)
		v2 := f.tournament(valorant.ID, owner.ID, 8, 0)
		ch := f.tournament(chess.ID, owner.ID, 8, 0)
		require.NoError(t, f.register(v1.ID, a.ID))
		require.NoError(t, f.register(v2.ID, a.ID))
		require.NoError(t, f.register(v2.ID, b.ID))
		require.NoError(t, f.register(ch.ID, c.ID))
		_, err := f.s.AdjustPoints(ctx, b.ID, 40)
		require.NoError(t, err)

		entries, err := f.s.GetLeaderboard(ctx, LeaderboardFilter{GameID: valorant.ID})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, b.ID, entries[0].UserID)
		assert.Equal(t, 1, entries[0].Rank)
		assert.Equal(t, a.ID, entries[1].UserID)

		entries, err = f.s.GetLeaderboard(ctx, LeaderboardFilter{GameID: chess.ID, Limit: 10})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, c.ID, entries[0].UserID)
	})

	t.Run("profile get-or-create and update", func(t *testing.T) {
		f := newFixtures(t, newStorage(t))
		u := f.user("")
		g := f.game("Valorant", "fps")

		p, err := f.s.GetOrCreateProfile(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.ID, p.UserID)
		assert.Empty(t, p.RecentActivity)
		assert.Equal(t, 0, p.TotalTournaments)

		again, err := f.s.GetOrCreateProfile(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, p.UserID, again.UserID)

		bio, country := "gg wp", "DE"
		updated, err := f.s.UpdateProfile(ctx, u.ID, models.ProfileUpdate{Bio: &bio, Country: &country, MainGameID: &g.ID})
		require.NoError(t, err)
		assert.Equal(t, "gg wp", *updated.Bio)
		assert.Equal(t, "DE", *updated.Country)
		assert.Equal(t, g.ID, *updated.MainGameID)

		missing := 9999
		_, err = f.s.UpdateProfile(ctx, u.ID, models.ProfileUpdate{MainGameID: &missing})
		assert.ErrorIs(t, err, ErrProfileGameInvalid)

		_, err = f.s.GetOrCreateProfile(ctx, 9999)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func gameIDs(games []models.Game) []int {
	ids := make([]int, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}
	return ids
}

func tournamentIDs(ts []models.Tournament) []int {
	ids := make([]int, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}
