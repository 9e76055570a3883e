package auth

import (
	"context"

	"gamenight-api/internal/models"
)

type ctxKey struct{}

// WithSession devuelve un contexto que lleva la sesión del request. Es la
// única forma en que la identidad llega a handlers y servicios.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func SessionFrom(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*models.Session)
	return s, ok && s != nil
}
