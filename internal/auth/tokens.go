// Package auth verifica los tokens del proveedor de identidad federado y
// emite/parsea los tokens de sesión propios del servicio.
package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ProviderVerifier valida los ID tokens HS256 que firma el proveedor con un
// secreto compartido. Claims esperadas: sub, name, picture, email.
type ProviderVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewProviderVerifier(secret, issuer, audience string) *ProviderVerifier {
	return &ProviderVerifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

// El uid termina como clave de mapa en Mongo (attendees.<uid>), así que no
// puede llevar '.' ni '$'.
var uidPattern = regexp.MustCompile(`^[A-Za-z0-9_\-:|]{1,128}$`)

type providerClaims struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

func (v *ProviderVerifier) Verify(tokenStr string) (models.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims providerClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return models.Identity{}, &apperr.Error{Kind: apperr.KindUnauthenticated, Msg: "invalid identity token", Err: err}
	}
	if claims.Subject == "" {
		return models.Identity{}, apperr.New(apperr.KindUnauthenticated, "identity token without subject")
	}
	if !uidPattern.MatchString(claims.Subject) {
		return models.Identity{}, apperr.New(apperr.KindUnauthenticated, "identity token with unsupported subject")
	}

	return models.Identity{
		UID:         claims.Subject,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
		Email:       claims.Email,
	}, nil
}

// SessionTokens firma los tokens de sesión: sub = uid, sid = id de sesión.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	return &SessionTokens{secret: []byte(secret), ttl: ttl}
}

func (t *SessionTokens) TTL() time.Duration { return t.ttl }

type sessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

func (t *SessionTokens) Issue(sessionID, uid string, now time.Time) (string, time.Time, error) {
	exp := now.Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		SID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return s, exp, nil
}

var errNoSID = errors.New("token without sid")

// Parse valida firma y expiración y devuelve (sid, uid).
func (t *SessionTokens) Parse(tokenStr string) (string, string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithExpirationRequired())
	if err == nil && claims.SID == "" {
		err = errNoSID
	}
	if err != nil {
		return "", "", &apperr.Error{Kind: apperr.KindUnauthenticated, Msg: "invalid session token", Err: err}
	}
	return claims.SID, claims.Subject, nil
}
