package handler

import (
	"net/http"
	"strings"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/auth"
	"gamenight-api/internal/models"
	"gamenight-api/internal/service"

	"go.uber.org/zap"
)

// SessionAuth devuelve un middleware que valida el token de sesión y
// mete la sesión en el contexto del request.
func SessionAuth(svc *service.AuthService, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, log, r, apperr.New(apperr.KindUnauthenticated, "missing or invalid Authorization header"))
				return
			}

			sess, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, log, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

// bearerToken acepta "Authorization: Bearer <t>" y, para el upgrade de
// websocket donde el browser no manda headers, ?access_token=<t>.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		return t, t != ""
	}
	if t := r.URL.Query().Get("access_token"); t != "" && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return t, true
	}
	return "", false
}

// AdminOnly solo deja pasar sesiones admin (regla de dominio de email,
// calculada al iniciar sesión).
func AdminOnly(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := auth.SessionFrom(r.Context())
			if !ok {
				writeError(w, log, r, apperr.ErrUnauthenticated)
				return
			}
			if !sess.Admin {
				writeError(w, log, r, apperr.Forbidden("admin only"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionFrom es el helper de los handlers protegidos. La ruta siempre
// pasa por SessionAuth, así que la ausencia es un error de wiring.
func sessionFrom(r *http.Request) (*models.Session, error) {
	sess, ok := auth.SessionFrom(r.Context())
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	return sess, nil
}
