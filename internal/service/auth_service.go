package service

import (
	"context"
	"strings"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/auth"
	"gamenight-api/internal/models"

	"github.com/google/uuid"
)

// IdentityVerifier valida el token del proveedor federado.
type IdentityVerifier interface {
	Verify(token string) (models.Identity, error)
}

type AuthService struct {
	verifier    IdentityVerifier
	tokens      *auth.SessionTokens
	sessions    SessionStore
	profiles    *ProfileService
	adminDomain string
	now         func() time.Time
}

func NewAuthService(
	verifier IdentityVerifier,
	tokens *auth.SessionTokens,
	sessions SessionStore,
	profiles *ProfileService,
	adminDomain string,
) *AuthService {
	return &AuthService{
		verifier:    verifier,
		tokens:      tokens,
		sessions:    sessions,
		profiles:    profiles,
		adminDomain: adminDomain,
		now:         time.Now,
	}
}

// ================== SIGN IN & SIGN OUT ==================

// SignIn cambia un token del proveedor por un token de sesión. La marca de
// admin se calcula acá, del lado servidor, a partir del email verificado.
func (s *AuthService) SignIn(ctx context.Context, providerToken string) (string, *models.Session, error) {
	providerToken = strings.TrimSpace(providerToken)
	if providerToken == "" {
		return "", nil, apperr.New(apperr.KindUnauthenticated, "idToken is required")
	}

	id, err := s.verifier.Verify(providerToken)
	if err != nil {
		return "", nil, err
	}

	if err := s.profiles.SyncIdentity(ctx, id); err != nil {
		return "", nil, err
	}

	now := s.now()
	sess := &models.Session{
		ID:       uuid.NewString(),
		Identity: id,
		Admin:    models.IsAdminEmail(id.Email, s.adminDomain),
	}

	token, exp, err := s.tokens.Issue(sess.ID, id.UID, now)
	if err != nil {
		return "", nil, err
	}
	sess.ExpiresAt = exp

	if err := s.sessions.Save(ctx, sess, s.tokens.TTL()); err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Authenticate valida el token y que la sesión siga viva en el store.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	sid, uid, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Find(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Identity.UID != uid {
		return nil, apperr.New(apperr.KindUnauthenticated, "session expired or signed out")
	}
	return sess, nil
}

func (s *AuthService) SignOut(ctx context.Context, sess *models.Session) error {
	if sess == nil {
		return apperr.ErrUnauthenticated
	}
	return s.sessions.Delete(ctx, sess.ID)
}
