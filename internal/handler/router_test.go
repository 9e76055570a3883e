package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gamenight-api/internal/auth"
	"gamenight-api/internal/logger"
	"gamenight-api/internal/metrics"
	"gamenight-api/internal/models"
	"gamenight-api/internal/realtime"
	"gamenight-api/internal/repository/memstore"
	"gamenight-api/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const providerSecret = "provider-secret"

type testAPI struct {
	t      *testing.T
	router http.Handler
	feed   *hookFeed
}

// hookFeed corre afterSubscribe justo después de cada Subscribe.
type hookFeed struct {
	realtime.Feed
	afterSubscribe func()
}

func (f *hookFeed) Subscribe(ctx context.Context, nightID string) (<-chan []byte, func(), error) {
	updates, cancel, err := f.Feed.Subscribe(ctx, nightID)
	if err == nil && f.afterSubscribe != nil {
		f.afterSubscribe()
	}
	return updates, cancel, err
}

func newTestAPI(t *testing.T, rps float64, burst int) *testAPI {
	t.Helper()
	mem := memstore.New()
	reg := metrics.New()
	log := logger.Nop()
	feed := &hookFeed{Feed: realtime.NewMemoryFeed()}

	profiles := service.NewProfileService(mem.Users(), mem.Games())
	nights, err := service.NewGameNightService(mem.GameNights(), mem.Games(), mem.Users(), feed, "UTC", reg, log)
	require.NoError(t, err)

	router := NewRouter(Deps{
		Auth: service.NewAuthService(
			auth.NewProviderVerifier(providerSecret, "", ""),
			auth.NewSessionTokens("session-secret", time.Hour),
			mem.Sessions(),
			profiles,
			"@admin.com",
		),
		Games:          service.NewGameService(mem.Games(), nil, time.Minute, reg, log),
		GameNights:     nights,
		Profiles:       profiles,
		Settings:       service.NewSettingsService(mem.Settings(), time.UTC),
		Feed:           feed,
		Metrics:        reg,
		Checks:         map[string]Check{},
		Log:            log,
		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	})
	return &testAPI{t: t, router: router, feed: feed}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(a.t, err)
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) signIn(uid, name, email string) string {
	a.t.Helper()
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uid, "name": name, "email": email,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(providerSecret))
	require.NoError(a.t, err)

	rec := a.do(http.MethodPost, "/auth/session", "", signInRequest{IDToken: idToken})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	decode(a.t, rec, &resp)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorResponse
	decode(t, rec, &e)
	return e.Error
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t, 0, 0)

	rec := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gamenight_http_requests_total{method="GET",route="/health",status="200"} 1`)

	rec = api.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", errorOf(t, rec))
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI(t, 0, 0)

	rec := api.do(http.MethodGet, "/games", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/auth/session", "", `{"idToken":"forged"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := api.signIn("U1", "Ana", "ana@example.com")

	rec = api.do(http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cur sessionResponse
	decode(t, rec, &cur)
	assert.Equal(t, "U1", cur.User.UID)
	assert.False(t, cur.Admin)
	assert.Empty(t, cur.Token)

	rec = api.do(http.MethodDelete, "/auth/session", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, "/auth/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGameEndpoints(t *testing.T) {
	api := newTestAPI(t, 0, 0)
	ana := api.signIn("U1", "Ana", "ana@example.com")
	beto := api.signIn("U2", "Beto", "beto@example.com")

	rec := api.do(http.MethodPost, "/games", ana, models.GameCreateRequest{Name: "Catan", Description: "trade", MinPlayers: 3, MaxPlayers: 4})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var catan models.Game
	decode(t, rec, &catan)
	assert.Equal(t, []string{"U1"}, catan.OwnedBy)

	rec = api.do(http.MethodPost, "/games", ana, models.GameCreateRequest{Name: "Bad", Description: "x", MinPlayers: 5, MaxPlayers: 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/games", ana, `{"name":"X","unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/games/not-an-id", ana, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/games/65f000000000000000000000", ana, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodDelete, "/games/65f000000000000000000000/owners/U1", ana, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	owners := "/games/" + catan.ID.Hex() + "/owners/"
	rec = api.do(http.MethodPut, owners+"U2", beto, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodDelete, owners+"U1", beto, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/games/"+catan.ID.Hex(), beto, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &catan)
	assert.Equal(t, []string{"U1", "U2"}, catan.OwnedBy)

	rec = api.do(http.MethodGet, "/users/U2/games", ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var owned []models.Game
	decode(t, rec, &owned)
	require.Len(t, owned, 1)
	assert.Equal(t, "Catan", owned[0].Name)

	rec = api.do(http.MethodGet, "/games", ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []models.Game
	decode(t, rec, &all)
	assert.Len(t, all, 1)
}

func TestProfileEndpoints(t *testing.T) {
	api := newTestAPI(t, 0, 0)
	ana := api.signIn("U1", "Ana", "ana@example.com")

	rec := api.do(http.MethodPost, "/games", ana, models.GameCreateRequest{Name: "Azul", Description: "tiles", MinPlayers: 2, MaxPlayers: 4})
	require.Equal(t, http.StatusCreated, rec.Code)
	var azul models.Game
	decode(t, rec, &azul)

	rec = api.do(http.MethodGet, "/me/profile", ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.UserProfile
	decode(t, rec, &p)
	assert.Equal(t, "Ana", p.DisplayName)
	assert.Equal(t, []string{azul.ID.Hex()}, p.OwnedGames)

	rec = api.do(http.MethodPut, "/me/profile/favorite-game", ana, map[string]string{"gameId": azul.ID.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &p)
	require.NotNil(t, p.FavoriteGameID)
	assert.Equal(t, azul.ID.Hex(), *p.FavoriteGameID)

	rec = api.do(http.MethodPatch, "/me/profile", ana, `{"favoriteGameId":null,"gameNightsAttended":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p = models.UserProfile{}
	decode(t, rec, &p)
	assert.Nil(t, p.FavoriteGameID)
	assert.Equal(t, 2, p.GameNightsAttended)

	// ownedGames y los campos de identidad no son editables
	rec = api.do(http.MethodPatch, "/me/profile", ana, `{"ownedGames":["x"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodPatch, "/me/profile", ana, `{"displayName":"Hacker"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPatch, "/me/profile", ana, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPatch, "/me/profile", ana, `{"favoriteGameId":42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGameNightFlow(t *testing.T) {
	api := newTestAPI(t, 0, 0)
	ana := api.signIn("U1", "Ana", "ana@example.com")
	beto := api.signIn("U2", "Beto", "beto@example.com")

	rec := api.do(http.MethodPost, "/game-nights", ana, models.GameNightFormData{Date: "2024-06-05", Time: "19:30", Location: "Ana's"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var night models.GameNight
	decode(t, rec, &night)
	base := "/game-nights/" + night.ID.Hex()

	rec = api.do(http.MethodPost, "/game-nights", ana, models.GameNightFormData{Date: "junio", Time: "19:30"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, base+"/suggestions", ana, suggestRequest{GameID: "wingspan-id"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, base+"/suggestions", beto, suggestRequest{GameID: "wingspan-id"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, base+"/suggestions/wingspan-id/vote", beto, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var vote voteResponse
	decode(t, rec, &vote)
	assert.True(t, vote.Voted)
	assert.Equal(t, []string{"U1", "U2"}, vote.GameNight.SuggestedGames["wingspan-id"].Votes)

	rec = api.do(http.MethodPost, base+"/suggestions/unknown/vote", beto, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPut, base+"/rsvp", beto, rsvpRequest{Status: models.StatusGoing})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPut, base+"/rsvp", beto, rsvpRequest{Status: "sure"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, base+"/notes", beto, notesRequest{Notes: "snacks"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPut, base+"/selected-games", beto, selectedGamesRequest{GameIDs: []string{"wingspan-id"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPut, base+"/selected-games", ana, selectedGamesRequest{GameIDs: []string{"wingspan-id"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, base+"/calendar", beto, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cal calendarResponse
	decode(t, rec, &cal)
	assert.Contains(t, cal.URL, "dates=20240605T193000Z%2F20240605T230000Z")

	rec = api.do(http.MethodPost, base+"/complete", beto, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, base+"/complete", ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPost, base+"/complete", ana, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodGet, "/me/profile", beto, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.UserProfile
	decode(t, rec, &p)
	assert.Equal(t, 1, p.GameNightsAttended)

	rec = api.do(http.MethodGet, base, beto, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &night)
	assert.Equal(t, "snacks", night.Notes)
	assert.NotNil(t, night.CompletedAt)

	rec = api.do(http.MethodGet, "/game-nights?limit=abc", beto, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/game-nights?limit=5", beto, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.GameNight
	decode(t, rec, &list)
	assert.Len(t, list, 1)
}

func TestAdminSettings(t *testing.T) {
	api := newTestAPI(t, 0, 0)
	ana := api.signIn("U1", "Ana", "ana@example.com")
	root := api.signIn("ADM", "Root", "root@admin.com")

	rec := api.do(http.MethodGet, "/admin/settings", ana, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/admin/settings", root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var s models.Settings
	decode(t, rec, &s)
	assert.Equal(t, models.RecurrenceFirstWednesday, s.RecurrenceRule)

	rec = api.do(http.MethodPut, "/admin/settings", root, `{"recurrenceRule":"second-friday","defaultTime":"20:00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &s)
	assert.Equal(t, models.RecurrenceSecondFriday, s.RecurrenceRule)
	assert.Equal(t, "ADM", s.UpdatedBy)

	rec = api.do(http.MethodPut, "/admin/settings", root, `{"reminderDays":99}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/admin/settings/next-dates?n=3", root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var next nextDatesResponse
	decode(t, rec, &next)
	require.Len(t, next.Dates, 3)
	for _, d := range next.Dates {
		assert.Equal(t, time.Friday, d.Weekday())
		assert.True(t, d.After(time.Now()))
	}

	rec = api.do(http.MethodGet, "/admin/settings/next-dates?n=abc", root, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitPerUser(t *testing.T) {
	api := newTestAPI(t, 0.001, 2)
	ana := api.signIn("U1", "Ana", "ana@example.com")
	beto := api.signIn("U2", "Beto", "beto@example.com")

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/games", ana, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/games", ana, nil).Code)
	rec := api.do(http.MethodGet, "/games", ana, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// otro usuario tiene su propio bucket
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/games", beto, nil).Code)
}

func TestGameNightWebsocketFeed(t *testing.T) {
	api := newTestAPI(t, 0, 0)
	ana := api.signIn("U1", "Ana", "ana@example.com")
	beto := api.signIn("U2", "Beto", "beto@example.com")

	rec := api.do(http.MethodPost, "/game-nights", ana, models.GameNightFormData{Date: "2030-01-02", Time: "19:30"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var night models.GameNight
	decode(t, rec, &night)

	srv := httptest.NewServer(api.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game-nights/" + night.ID.Hex() + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Authorization": {"Bearer " + beto}})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type      string           `json:"type"`
		GameNight models.GameNight `json:"gameNight"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, night.ID, msg.GameNight.ID)

	rec = api.do(http.MethodPut, "/game-nights/"+night.ID.Hex()+"/rsvp", beto, rsvpRequest{Status: models.StatusMaybe})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "update", msg.Type)
	assert.Equal(t, models.StatusMaybe, msg.GameNight.Attendees["U2"].Status)

	// sin sesión no hay upgrade
	_, resp, err = websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocketSnapshotIncludesChangesRacingTheSubscription(t *testing.T) {
	api := newTestAPI(t, 0, 0)
	ana := api.signIn("U1", "Ana", "ana@example.com")
	beto := api.signIn("U2", "Beto", "beto@example.com")

	rec := api.do(http.MethodPost, "/game-nights", ana, models.GameNightFormData{Date: "2030-01-02", Time: "19:30"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var night models.GameNight
	decode(t, rec, &night)
	base := "/game-nights/" + night.ID.Hex()

	// el cambio cae entre la suscripción y la lectura del snapshot
	api.feed.afterSubscribe = func() {
		api.feed.afterSubscribe = nil
		rec := api.do(http.MethodPut, base+"/notes", ana, `{"notes":"pizza"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	srv := httptest.NewServer(api.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + base + "/ws?access_token=" + beto
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type      string           `json:"type"`
		GameNight models.GameNight `json:"gameNight"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, "pizza", msg.GameNight.Notes)
	snapshotRev := msg.GameNight.Rev

	rec = api.do(http.MethodPut, base+"/rsvp", beto, rsvpRequest{Status: models.StatusGoing})
	require.Equal(t, http.StatusOK, rec.Code)

	// la actualización ya incluida en el snapshot no se reenvía
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "update", msg.Type)
	assert.Equal(t, snapshotRev+1, msg.GameNight.Rev)
	assert.Equal(t, models.StatusGoing, msg.GameNight.Attendees["U2"].Status)
}

func TestRevOf(t *testing.T) {
	assert.Equal(t, int64(7), revOf([]byte(`{"id":"x","rev":7}`)))
	assert.Equal(t, int64(0), revOf([]byte(`{"id":"x"}`)))
	assert.Equal(t, int64(-1), revOf([]byte(`not json`)))
}
