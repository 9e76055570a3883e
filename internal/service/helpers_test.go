package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"gamenight-api/internal/logger"
	"gamenight-api/internal/metrics"
	"gamenight-api/internal/models"
	"gamenight-api/internal/repository/memstore"

	"github.com/stretchr/testify/require"
)

var (
	u1    = models.Identity{UID: "U1", DisplayName: "Ana", PhotoURL: "https://img/ana.png", Email: "ana@example.com"}
	u2    = models.Identity{UID: "U2", DisplayName: "Beto", Email: "beto@example.com"}
	u3    = models.Identity{UID: "U3", DisplayName: "Caro", Email: "caro@example.com"}
	admin = models.Identity{UID: "ADM", DisplayName: "Root", Email: "root@admin.com"}
)

func sessionOf(id models.Identity) *models.Session {
	return &models.Session{ID: "sess-" + id.UID, Identity: id, Admin: models.IsAdminEmail(id.Email, "@admin.com")}
}

type fixture struct {
	mem      *memstore.Store
	games    *GameService
	nights   *GameNightService
	profiles *ProfileService
	metrics  *metrics.Registry
}

func newFixture(t *testing.T, feed Publisher) *fixture {
	t.Helper()
	mem := memstore.New()
	reg := metrics.New()
	log := logger.Nop()

	nights, err := NewGameNightService(mem.GameNights(), mem.Games(), mem.Users(), feed, "UTC", reg, log)
	require.NoError(t, err)

	return &fixture{
		mem:      mem,
		games:    NewGameService(mem.Games(), nil, time.Minute, reg, log),
		nights:   nights,
		profiles: NewProfileService(mem.Users(), mem.Games()),
		metrics:  reg,
	}
}

func (f *fixture) createNight(t *testing.T, organizer models.Identity) *models.GameNight {
	t.Helper()
	n, err := f.nights.Create(context.Background(), organizer, models.GameNightFormData{
		Date: "2024-06-05", Time: "19:30", Location: "Ana's place",
	})
	require.NoError(t, err)
	return n
}

func (f *fixture) createGame(t *testing.T, actor models.Identity, name string) *models.Game {
	t.Helper()
	g, err := f.games.Create(context.Background(), actor, models.GameCreateRequest{
		Name: name, Description: name + " description", MinPlayers: 2, MaxPlayers: 4,
	})
	require.NoError(t, err)
	return g
}

// mapCache es un JSONCache en memoria que cuenta lecturas.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *mapCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}
