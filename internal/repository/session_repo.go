package repository

import (
	"context"
	"encoding/json"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/models"

	"github.com/redis/go-redis/v9"
)

// SessionRepository guarda las sesiones en Redis con TTL; borrar la clave
// es cerrar sesión.
type SessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func sessionKey(id string) string { return "session:" + id }

func (r *SessionRepository) Save(ctx context.Context, s *models.Session, ttl time.Duration) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return apperr.Store("sessions.set", r.client.Set(ctx, sessionKey(s.ID), b, ttl).Err())
}

// Find devuelve nil si la sesión no existe o expiró.
func (r *SessionRepository) Find(ctx context.Context, id string) (*models.Session, error) {
	val, err := r.client.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("sessions.get", err)
	}

	var s models.Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, apperr.Store("sessions.decode", err)
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return apperr.Store("sessions.del", r.client.Del(ctx, sessionKey(id)).Err())
}
