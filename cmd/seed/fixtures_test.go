package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixturesEmbedded(t *testing.T) {
	games, err := loadFixtures("")
	require.NoError(t, err)
	require.Len(t, games, 8)

	names := make([]string, 0, len(games))
	for _, g := range games {
		names = append(names, g.Name)
		assert.NotEmpty(t, g.Description, g.Name)
		assert.GreaterOrEqual(t, g.MaxPlayers, g.MinPlayers, g.Name)
		assert.NotEmpty(t, g.ImageURL, g.Name)
	}
	assert.Contains(t, names, "Wingspan")
	assert.Contains(t, names, "Codenames")
}

func TestLoadFixturesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"Azul","minPlayers":2,"maxPlayers":4}]`), 0o600))

	games, err := loadFixtures(path)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Azul", games[0].Name)

	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))
	_, err = loadFixtures(path)
	assert.Error(t, err)

	_, err = loadFixtures(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
