package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"gamenight-api/internal/models"
)

//go:embed games.json
var defaultGames []byte

// loadFixtures lee los juegos de path, o los embebidos si path está vacío.
func loadFixtures(path string) ([]models.GameCreateRequest, error) {
	raw := defaultGames
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	var games []models.GameCreateRequest
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("no games in fixtures")
	}
	return games, nil
}
