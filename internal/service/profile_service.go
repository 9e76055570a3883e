package service

import (
	"context"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileService maneja los perfiles. ownedGames no se guarda en el perfil:
// se deriva de games.ownedBy en cada lectura, así las dos vistas no pueden
// quedar desincronizadas.
type ProfileService struct {
	profiles ProfileStore
	games    GameStore
	now      func() time.Time
}

func NewProfileService(profiles ProfileStore, games GameStore) *ProfileService {
	return &ProfileService{profiles: profiles, games: games, now: time.Now}
}

func newProfile(actor models.Identity, now time.Time) *models.UserProfile {
	return &models.UserProfile{
		UID:                actor.UID,
		DisplayName:        actor.DisplayName,
		PhotoURL:           actor.PhotoURL,
		FavoriteGameID:     nil,
		GameNightsAttended: 0,
		CreatedAt:          now,
		LastUpdated:        now,
	}
}

// GetOrCreate devuelve el perfil de actor, creándolo la primera vez.
func (s *ProfileService) GetOrCreate(ctx context.Context, actor models.Identity) (*models.UserProfile, error) {
	if actor.UID == "" {
		return nil, apperr.ErrUnauthenticated
	}

	p, _, err := s.profiles.GetOrCreate(ctx, newProfile(actor, s.now().UTC()))
	if err != nil {
		return nil, err
	}
	return s.withOwnedGames(ctx, p)
}

func (s *ProfileService) Get(ctx context.Context, uid string) (*models.UserProfile, error) {
	p, err := s.profiles.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("user profile not found")
	}
	return s.withOwnedGames(ctx, p)
}

// Update aplica los campos editables. Si cambia el favorito, el juego tiene
// que existir.
func (s *ProfileService) Update(ctx context.Context, uid string, upd models.ProfileUpdate) (*models.UserProfile, error) {
	if upd.Empty() {
		return nil, apperr.Validation("no fields to update")
	}
	if upd.GameNightsAttended != nil && *upd.GameNightsAttended < 0 {
		return nil, apperr.Validation("gameNightsAttended cannot be negative")
	}
	if upd.SetFavorite && upd.FavoriteGameID != nil {
		oid, err := primitive.ObjectIDFromHex(*upd.FavoriteGameID)
		if err != nil {
			return nil, apperr.Validation("invalid favoriteGameId")
		}
		g, err := s.games.FindByID(ctx, oid)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, apperr.NotFound("game %s not found", *upd.FavoriteGameID)
		}
	}

	if err := s.profiles.Update(ctx, uid, upd, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.Get(ctx, uid)
}

// SetFavoriteGame: gameID nil borra el favorito.
func (s *ProfileService) SetFavoriteGame(ctx context.Context, uid string, gameID *string) (*models.UserProfile, error) {
	return s.Update(ctx, uid, models.ProfileUpdate{SetFavorite: true, FavoriteGameID: gameID})
}

func (s *ProfileService) IncrementAttended(ctx context.Context, uid string) error {
	return s.profiles.IncrementAttended(ctx, uid, 1, s.now().UTC())
}

// SyncIdentity se llama en cada login: crea el perfil si falta y copia
// nombre y foto actuales del proveedor.
func (s *ProfileService) SyncIdentity(ctx context.Context, actor models.Identity) error {
	now := s.now().UTC()
	p, created, err := s.profiles.GetOrCreate(ctx, newProfile(actor, now))
	if err != nil {
		return err
	}
	if created || (p.DisplayName == actor.DisplayName && p.PhotoURL == actor.PhotoURL) {
		return nil
	}
	return s.profiles.SyncIdentity(ctx, actor.UID, actor.DisplayName, actor.PhotoURL, now)
}

func (s *ProfileService) withOwnedGames(ctx context.Context, p *models.UserProfile) (*models.UserProfile, error) {
	owned, err := s.games.FindOwnedBy(ctx, p.UID)
	if err != nil {
		return nil, err
	}
	p.OwnedGames = make([]string, 0, len(owned))
	for _, g := range owned {
		p.OwnedGames = append(p.OwnedGames, g.ID.Hex())
	}
	return p, nil
}
