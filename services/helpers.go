package services

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Dosada05/esports-platform/live"
	"github.com/Dosada05/esports-platform/models"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// canManage reports whether the actor may administer a tournament.
func (a Actor) canManage(t *models.Tournament) bool {
	return a.IsAdmin() || t.CreatedBy == a.UserID
}

// Recorder receives business metrics. *metrics.Metrics implements it.
type Recorder interface {
	Registration(outcome string)
	MatchResult()
	Reconciled(n int)
}

type nopRecorder struct{}

func (nopRecorder) Registration(string) {}
func (nopRecorder) MatchResult()        {}
func (nopRecorder) Reconciled(int)      {}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToRoom(string, live.Message) {}

func orNopRecorder(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

func orNopBroadcaster(b live.Broadcaster) live.Broadcaster {
	if b == nil {
		return nopBroadcaster{}
	}
	return b
}

func orDiscardLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusUpcoming:  {models.StatusLive, models.StatusCanceled},
		models.StatusLive:      {models.StatusCompleted, models.StatusCanceled},
		models.StatusCompleted: {},
		models.StatusCanceled:  {},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// GetExtensionFromContentType maps an image content type to a file extension.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	}
	return "", fmt.Errorf("unsupported image content type: '%s'", contentType)
}

// GenreOption is a genre as shown in filters.
type GenreOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func genreDisplayName(genre string) string {
	switch genre {
	case "":
		return ""
	case "fps", "moba", "rts", "mmo":
		return strings.ToUpper(genre)
	}
	r, size := utf8.DecodeRuneInString(genre)
	return string(unicode.ToUpper(r)) + genre[size:]
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
