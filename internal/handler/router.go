package handler

import (
	"net/http"

	"gamenight-api/internal/metrics"
	"gamenight-api/internal/realtime"
	"gamenight-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Deps es todo lo que necesita el router. cmd/api lo arma con Mongo/Redis y
// los tests con memstore.
type Deps struct {
	Auth       *service.AuthService
	Games      *service.GameService
	GameNights *service.GameNightService
	Profiles   *service.ProfileService
	Settings   *service.SettingsService
	Feed       realtime.Feed
	Metrics    *metrics.Registry
	Checks     map[string]Check
	Log        *zap.SugaredLogger

	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(d Deps) http.Handler {
	authH := NewAuthHandler(d.Auth, d.Log)
	gameH := NewGameHandler(d.Games, d.Log)
	nightH := NewGameNightHandler(d.GameNights, d.Feed, d.Metrics, d.Log)
	profileH := NewProfileHandler(d.Profiles, d.Log)
	settingsH := NewSettingsHandler(d.Settings, d.Log)
	healthH := NewHealthHandler(d.Checks)
	limiter := NewRateLimiter(d.RateLimitRPS, d.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(Metrics(d.Metrics))
	}
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	// =============
	// Rutas públicas
	// =============
	r.Get("/health", healthH.Health)
	if d.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Gatherer(), promhttp.HandlerOpts{}))
	}
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.With(limiter.Middleware(d.Log)).Post("/auth/session", authH.SignIn)

	// ===========================
	// Rutas protegidas con sesión
	// ===========================
	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(d.Auth, d.Log))
		r.Use(limiter.Middleware(d.Log))

		r.Get("/auth/session", authH.Current)
		r.Delete("/auth/session", authH.SignOut)

		r.Route("/games", func(r chi.Router) {
			r.Get("/", gameH.List)
			r.Post("/", gameH.Create)
			r.Get("/{id}", gameH.Get)
			r.Put("/{id}/owners/{uid}", gameH.AddOwner)
			r.Delete("/{id}/owners/{uid}", gameH.RemoveOwner)
		})
		r.Get("/users/{uid}/games", gameH.ListOwnedBy)

		r.Route("/me/profile", func(r chi.Router) {
			r.Get("/", profileH.Get)
			r.Patch("/", profileH.Patch)
			r.Put("/favorite-game", profileH.SetFavoriteGame)
		})

		r.Route("/game-nights", func(r chi.Router) {
			r.Get("/", nightH.List)
			r.Post("/", nightH.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", nightH.Get)
				r.Get("/calendar", nightH.Calendar)
				r.Get("/ws", nightH.Feed)
				r.Post("/suggestions", nightH.Suggest)
				r.Post("/suggestions/{gameId}/vote", nightH.ToggleVote)
				r.Put("/rsvp", nightH.RSVP)
				r.Put("/notes", nightH.SetNotes)
				r.Put("/selected-games", nightH.SelectGames)
				r.Post("/complete", nightH.Complete)
			})
		})

		// ---- Endpoints solo ADMIN ----
		r.Group(func(r chi.Router) {
			r.Use(AdminOnly(d.Log))

			r.Get("/admin/settings", settingsH.Get)
			r.Put("/admin/settings", settingsH.Update)
			r.Get("/admin/settings/next-dates", settingsH.NextDates)
		})
	})

	return r
}
