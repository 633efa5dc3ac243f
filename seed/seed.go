// Package seed loads the sample game catalogue shipped with the binary.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/services"
	"gopkg.in/yaml.v3"
)

//go:embed games.yaml
var gamesYAML []byte

type gameEntry struct {
	Name        string `yaml:"name"`
	Genre       string `yaml:"genre"`
	Description string `yaml:"description"`
}

type file struct {
	Games []gameEntry `yaml:"games"`
}

// SampleGames parses the embedded catalogue.
func SampleGames() ([]services.CreateGameInput, error) {
	return parseGames(gamesYAML)
}

func parseGames(raw []byte) ([]services.CreateGameInput, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed games: %w", err)
	}
	inputs := make([]services.CreateGameInput, 0, len(f.Games))
	for _, g := range f.Games {
		in := services.CreateGameInput{Name: g.Name, Genre: g.Genre}
		if g.Description != "" {
			desc := g.Description
			in.Description = &desc
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// Games creates the sample games unless the catalogue already has any.
// It returns how many games were created.
func Games(ctx context.Context, games services.GameService, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	existing, err := games.ListGames(ctx, "", models.GameSortDefault)
	if err != nil {
		return 0, fmt.Errorf("failed to list games: %w", err)
	}
	if len(existing) > 0 {
		logger.InfoContext(ctx, "Games already present, skipping seed", slog.Int("count", len(existing)))
		return 0, nil
	}

	inputs, err := SampleGames()
	if err != nil {
		return 0, err
	}

	created := 0
	for _, in := range inputs {
		g, err := games.CreateGame(ctx, in)
		if errors.Is(err, services.ErrConflict) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to seed game %q: %w", in.Name, err)
		}
		created++
		logger.DebugContext(ctx, "Seeded game", slog.Int("game_id", g.ID), slog.String("name", g.Name))
	}
	logger.InfoContext(ctx, "Sample games seeded", slog.Int("created", created))
	return created, nil
}
