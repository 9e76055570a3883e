// Package memstore implementa los mismos contratos que los repositorios de
// Mongo sobre mapas en memoria. Cada operación toma el lock del store, así
// que conserva la atomicidad por documento que dan $addToSet, $pull, $inc y
// las escrituras condicionadas. Se usa con STORE_BACKEND=memory y en tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu       sync.Mutex
	games    map[primitive.ObjectID]*models.Game
	nights   map[primitive.ObjectID]*models.GameNight
	users    map[string]*models.UserProfile
	settings *models.Settings
	sessions map[string]sessionEntry

	now func() time.Time
}

type sessionEntry struct {
	s         models.Session
	expiresAt time.Time
}

func New() *Store {
	return &Store{
		games:    map[primitive.ObjectID]*models.Game{},
		nights:   map[primitive.ObjectID]*models.GameNight{},
		users:    map[string]*models.UserProfile{},
		sessions: map[string]sessionEntry{},
		now:      time.Now,
	}
}

// Games devuelve la vista de juegos del store.
func (s *Store) Games() *GameStore { return &GameStore{s} }

func (s *Store) GameNights() *GameNightStore { return &GameNightStore{s} }

func (s *Store) Users() *UserStore { return &UserStore{s} }

func (s *Store) Settings() *SettingsStore { return &SettingsStore{s} }

func (s *Store) Sessions() *SessionStore { return &SessionStore{s} }

// ===================== games =====================

type GameStore struct{ s *Store }

func (g *GameStore) Insert(_ context.Context, game *models.Game) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	if game.ID.IsZero() {
		game.ID = primitive.NewObjectID()
	}
	if game.OwnedBy == nil {
		game.OwnedBy = []string{}
	}
	if _, ok := g.s.games[game.ID]; ok {
		return apperr.Store("games.insert", errDuplicateID)
	}
	g.s.games[game.ID] = copyGame(game)
	return nil
}

func (g *GameStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Game, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	game, ok := g.s.games[id]
	if !ok {
		return nil, nil
	}
	return copyGame(game), nil
}

func (g *GameStore) FindByName(_ context.Context, name string) (*models.Game, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	for _, game := range g.s.games {
		if game.Name == name {
			return copyGame(game), nil
		}
	}
	return nil, nil
}

func (g *GameStore) FindAll(_ context.Context) ([]models.Game, error) {
	return g.filter(func(*models.Game) bool { return true }), nil
}

func (g *GameStore) FindOwnedBy(_ context.Context, uid string) ([]models.Game, error) {
	return g.filter(func(game *models.Game) bool { return game.IsOwnedBy(uid) }), nil
}

func (g *GameStore) filter(keep func(*models.Game) bool) []models.Game {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	out := []models.Game{}
	for _, game := range g.s.games {
		if keep(game) {
			out = append(out, *copyGame(game))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (g *GameStore) AddOwner(_ context.Context, id primitive.ObjectID, uid string) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	game, ok := g.s.games[id]
	if !ok {
		return apperr.NotFound("game not found")
	}
	game.OwnedBy = addToSet(game.OwnedBy, uid)
	return nil
}

func (g *GameStore) RemoveOwner(_ context.Context, id primitive.ObjectID, uid string) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	game, ok := g.s.games[id]
	if !ok {
		return apperr.NotFound("game not found")
	}
	game.OwnedBy = pull(game.OwnedBy, uid)
	return nil
}

// ===================== game nights =====================

type GameNightStore struct{ s *Store }

func (n *GameNightStore) Insert(_ context.Context, night *models.GameNight) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	if night.ID.IsZero() {
		night.ID = primitive.NewObjectID()
	}
	if _, ok := n.s.nights[night.ID]; ok {
		return apperr.Store("gameNights.insert", errDuplicateID)
	}
	n.s.nights[night.ID] = copyNight(night)
	return nil
}

func (n *GameNightStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.GameNight, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	night, ok := n.s.nights[id]
	if !ok {
		return nil, nil
	}
	return copyNight(night), nil
}

func (n *GameNightStore) List(_ context.Context, from *time.Time, limit int) ([]models.GameNight, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	out := []models.GameNight{}
	for _, night := range n.s.nights {
		if from != nil && night.Date.Before(*from) {
			continue
		}
		out = append(out, *copyNight(night))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (n *GameNightStore) AddSuggestion(_ context.Context, id primitive.ObjectID, rev int64, gameID string, sug models.Suggestion) (*models.GameNight, bool, error) {
	return n.conditional(id, func(night *models.GameNight) error {
		if night.Rev != rev {
			return errStaleRev
		}
		if _, ok := night.SuggestedGames[gameID]; ok {
			return errStaleRev
		}
		if night.SuggestedGames == nil {
			night.SuggestedGames = map[string]models.Suggestion{}
		}
		night.SuggestedGames[gameID] = models.Suggestion{
			SuggestedBy: sug.SuggestedBy,
			Votes:       append([]string{}, sug.Votes...),
		}
		return nil
	})
}

func (n *GameNightStore) UpdateVotes(_ context.Context, id primitive.ObjectID, rev int64, gameID, uid string, add bool) (*models.GameNight, bool, error) {
	return n.conditional(id, func(night *models.GameNight) error {
		if night.Rev != rev {
			return errStaleRev
		}
		sug := night.SuggestedGames[gameID]
		if add {
			sug.Votes = append(sug.Votes, uid)
		} else {
			sug.Votes = pull(sug.Votes, uid)
		}
		if night.SuggestedGames == nil {
			night.SuggestedGames = map[string]models.Suggestion{}
		}
		night.SuggestedGames[gameID] = sug
		return nil
	})
}

// conditional imita un FindOneAndUpdate con filtro: si el documento no
// existe o la condición no se cumple devuelve ok=false sin error.
func (n *GameNightStore) conditional(id primitive.ObjectID, fn func(*models.GameNight) error) (*models.GameNight, bool, error) {
	night, err := n.mutate(id, fn)
	if err == errStaleRev || apperr.KindOf(err) == apperr.KindNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return night, true, nil
}

func (n *GameNightStore) SetAttendee(_ context.Context, id primitive.ObjectID, uid string, a models.Attendee) (*models.GameNight, error) {
	return n.mutate(id, func(night *models.GameNight) error {
		if night.Attendees == nil {
			night.Attendees = map[string]models.Attendee{}
		}
		night.Attendees[uid] = a
		return nil
	})
}

func (n *GameNightStore) SetNotes(_ context.Context, id primitive.ObjectID, notes string) (*models.GameNight, error) {
	return n.mutate(id, func(night *models.GameNight) error {
		night.Notes = notes
		return nil
	})
}

func (n *GameNightStore) SetSelectedGames(_ context.Context, id primitive.ObjectID, gameIDs []string) (*models.GameNight, error) {
	return n.mutate(id, func(night *models.GameNight) error {
		night.SelectedGames = append([]string{}, gameIDs...)
		return nil
	})
}

func (n *GameNightStore) MarkCompleted(_ context.Context, id primitive.ObjectID, at time.Time) (*models.GameNight, error) {
	return n.mutate(id, func(night *models.GameNight) error {
		if night.CompletedAt != nil {
			return apperr.AlreadyExists("game night already completed")
		}
		night.CompletedAt = &at
		return nil
	})
}

// mutate aplica fn bajo el lock y, si no falla, sube rev y updatedAt.
func (n *GameNightStore) mutate(id primitive.ObjectID, fn func(*models.GameNight) error) (*models.GameNight, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	night, ok := n.s.nights[id]
	if !ok {
		return nil, apperr.NotFound("game night not found")
	}

	draft := copyNight(night)
	if err := fn(draft); err != nil {
		return nil, err
	}
	draft.Rev++
	draft.UpdatedAt = n.s.now().UTC()
	n.s.nights[id] = draft
	return copyNight(draft), nil
}

// ===================== users =====================

type UserStore struct{ s *Store }

func (u *UserStore) FindByID(_ context.Context, uid string) (*models.UserProfile, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	p, ok := u.s.users[uid]
	if !ok {
		return nil, nil
	}
	return copyProfile(p), nil
}

func (u *UserStore) GetOrCreate(_ context.Context, p *models.UserProfile) (*models.UserProfile, bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if existing, ok := u.s.users[p.UID]; ok {
		return copyProfile(existing), false, nil
	}
	stored := copyProfile(p)
	stored.OwnedGames = nil
	u.s.users[p.UID] = stored
	return copyProfile(stored), true, nil
}

func (u *UserStore) Update(_ context.Context, uid string, upd models.ProfileUpdate, now time.Time) error {
	return u.mutate(uid, func(p *models.UserProfile) {
		if upd.SetFavorite {
			p.FavoriteGameID = copyStrPtr(upd.FavoriteGameID)
		}
		if upd.GameNightsAttended != nil {
			p.GameNightsAttended = *upd.GameNightsAttended
		}
		p.LastUpdated = now
	})
}

func (u *UserStore) IncrementAttended(_ context.Context, uid string, n int, now time.Time) error {
	return u.mutate(uid, func(p *models.UserProfile) {
		p.GameNightsAttended += n
		p.LastUpdated = now
	})
}

func (u *UserStore) SyncIdentity(_ context.Context, uid, displayName, photoURL string, now time.Time) error {
	return u.mutate(uid, func(p *models.UserProfile) {
		p.DisplayName = displayName
		p.PhotoURL = photoURL
		p.LastUpdated = now
	})
}

func (u *UserStore) mutate(uid string, fn func(*models.UserProfile)) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	p, ok := u.s.users[uid]
	if !ok {
		return apperr.NotFound("user profile not found")
	}
	fn(p)
	return nil
}

// ===================== settings =====================

type SettingsStore struct{ s *Store }

func (st *SettingsStore) Get(_ context.Context) (*models.Settings, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	if st.s.settings == nil {
		return nil, nil
	}
	cp := *st.s.settings
	return &cp, nil
}

func (st *SettingsStore) Save(_ context.Context, settings *models.Settings) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	cp := *settings
	cp.ID = models.SettingsID
	st.s.settings = &cp
	return nil
}

// ===================== sessions =====================

type SessionStore struct{ s *Store }

func (ss *SessionStore) Save(_ context.Context, sess *models.Session, ttl time.Duration) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	ss.s.sessions[sess.ID] = sessionEntry{s: *sess, expiresAt: ss.s.now().Add(ttl)}
	return nil
}

func (ss *SessionStore) Find(_ context.Context, id string) (*models.Session, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	e, ok := ss.s.sessions[id]
	if !ok {
		return nil, nil
	}
	if !ss.s.now().Before(e.expiresAt) {
		delete(ss.s.sessions, id)
		return nil, nil
	}
	cp := e.s
	return &cp, nil
}

func (ss *SessionStore) Delete(_ context.Context, id string) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	delete(ss.s.sessions, id)
	return nil
}
