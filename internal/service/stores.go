package service

import (
	"context"
	"time"

	"gamenight-api/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contratos que implementan repository (Mongo/Redis) y memstore. Los Find*
// devuelven (nil, nil) cuando el documento no existe; las mutaciones sobre
// un documento inexistente devuelven apperr not-found.

type GameStore interface {
	Insert(ctx context.Context, g *models.Game) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Game, error)
	FindByName(ctx context.Context, name string) (*models.Game, error)
	FindAll(ctx context.Context) ([]models.Game, error)
	FindOwnedBy(ctx context.Context, uid string) ([]models.Game, error)
	AddOwner(ctx context.Context, id primitive.ObjectID, uid string) error
	RemoveOwner(ctx context.Context, id primitive.ObjectID, uid string) error
}

type GameNightStore interface {
	Insert(ctx context.Context, n *models.GameNight) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.GameNight, error)
	List(ctx context.Context, from *time.Time, limit int) ([]models.GameNight, error)
	AddSuggestion(ctx context.Context, id primitive.ObjectID, rev int64, gameID string, s models.Suggestion) (*models.GameNight, bool, error)
	UpdateVotes(ctx context.Context, id primitive.ObjectID, rev int64, gameID, uid string, add bool) (*models.GameNight, bool, error)
	SetAttendee(ctx context.Context, id primitive.ObjectID, uid string, a models.Attendee) (*models.GameNight, error)
	SetNotes(ctx context.Context, id primitive.ObjectID, notes string) (*models.GameNight, error)
	SetSelectedGames(ctx context.Context, id primitive.ObjectID, gameIDs []string) (*models.GameNight, error)
	MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.GameNight, error)
}

type ProfileStore interface {
	FindByID(ctx context.Context, uid string) (*models.UserProfile, error)
	GetOrCreate(ctx context.Context, p *models.UserProfile) (*models.UserProfile, bool, error)
	Update(ctx context.Context, uid string, upd models.ProfileUpdate, now time.Time) error
	IncrementAttended(ctx context.Context, uid string, n int, now time.Time) error
	SyncIdentity(ctx context.Context, uid, displayName, photoURL string, now time.Time) error
}

type SettingsStore interface {
	Get(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, s *models.Settings) error
}

type SessionStore interface {
	Save(ctx context.Context, s *models.Session, ttl time.Duration) error
	Find(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// JSONCache es el subconjunto de cache.Cache que usan los servicios. Puede
// ser nil: sin cache se va siempre al store.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Publisher recibe cada versión nueva de una noche de juegos.
type Publisher interface {
	Publish(ctx context.Context, nightID string, v any) error
}

type noopCache struct{}

func (noopCache) GetJSON(context.Context, string, any) (bool, error)        { return false, nil }
func (noopCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, ...string) error                   { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }
