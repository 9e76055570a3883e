package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/metrics"
	"gamenight-api/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	// intentos de escritura condicionada por revisión antes de rendirse
	maxRevAttempts = 5
	maxNotesLength = 4000

	defaultListLimit = 50
	maxListLimit     = 200

	// espera base entre reintentos por revisión; se le suma jitter
	revBackoffBase = 5 * time.Millisecond
)

// Los ids de juego se usan como clave de mapa en Mongo (suggestedGames.<id>),
// así que no pueden llevar '.' ni '$'.
var gameIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type GameNightService struct {
	nights   GameNightStore
	games    GameStore
	profiles ProfileStore
	feed     Publisher
	metrics  *metrics.Registry
	log      *zap.SugaredLogger

	defaultLoc *time.Location
	now        func() time.Time
	backoff    func(ctx context.Context, attempt int) error
}

func NewGameNightService(
	nights GameNightStore,
	games GameStore,
	profiles ProfileStore,
	feed Publisher,
	defaultTZ string,
	m *metrics.Registry,
	log *zap.SugaredLogger,
) (*GameNightService, error) {
	loc, err := time.LoadLocation(defaultTZ)
	if err != nil {
		return nil, err
	}
	if feed == nil {
		feed = noopPublisher{}
	}
	return &GameNightService{
		nights:     nights,
		games:      games,
		profiles:   profiles,
		feed:       feed,
		metrics:    m,
		log:        log,
		defaultLoc: loc,
		now:        time.Now,
		backoff:    jitterBackoff,
	}, nil
}

// jitterBackoff espera attempt*base más un jitter de hasta base, para que
// los escritores que chocaron no vuelvan a leer todos a la vez.
func jitterBackoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(attempt)*revBackoffBase + rand.N(revBackoffBase))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ParseSchedule combina fecha (YYYY-MM-DD) y hora (HH:MM) en un instante,
// interpretado en tz o, si viene vacío, en def. Devuelve también el nombre
// de la zona usada para guardarlo junto a la fecha.
func ParseSchedule(date, clock, tz string, def *time.Location) (time.Time, string, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, "", apperr.Validation("date and time are required")
	}

	loc := def
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, "", apperr.Validation("unknown timezone %q", tz)
		}
		loc = l
	}

	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, "", apperr.Validation("invalid date/time %q %q", date, clock)
	}
	return t, loc.String(), nil
}

// Create agenda una noche nueva; el organizador queda como "going".
func (s *GameNightService) Create(ctx context.Context, actor models.Identity, form models.GameNightFormData) (*models.GameNight, error) {
	at, tz, err := ParseSchedule(form.Date, form.Time, form.Timezone, s.defaultLoc)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	n := &models.GameNight{
		ID:        primitive.NewObjectID(),
		Date:      at.UTC(),
		Timezone:  tz,
		Location:  strings.TrimSpace(form.Location),
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actor.Creator(),
		Attendees: map[string]models.Attendee{
			actor.UID: {
				Status:      models.StatusGoing,
				DisplayName: actor.DisplayName,
				PhotoURL:    actor.PhotoURL,
			},
		},
		SuggestedGames: map[string]models.Suggestion{},
		SelectedGames:  []string{},
		Notes:          "",
	}

	if err := s.nights.Insert(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *GameNightService) Get(ctx context.Context, id primitive.ObjectID) (*models.GameNight, error) {
	n, err := s.nights.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperr.NotFound("game night %s not found", id.Hex())
	}
	return n, nil
}

// List devuelve las noches por fecha; upcoming filtra las que ya pasaron.
func (s *GameNightService) List(ctx context.Context, upcoming bool, limit int) ([]models.GameNight, error) {
	var from *time.Time
	if upcoming {
		now := s.now().UTC()
		from = &now
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.nights.List(ctx, from, min(limit, maxListLimit))
}

// SuggestGame agrega gameID a las sugerencias con el voto implícito de quien
// sugiere. Ese voto cuenta para el tope de votos por usuario.
func (s *GameNightService) SuggestGame(ctx context.Context, actor models.Identity, id primitive.ObjectID, gameID string) (*models.GameNight, error) {
	if err := validateGameID(gameID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxRevAttempts; attempt++ {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		n, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, ok := n.SuggestedGames[gameID]; ok {
			return nil, apperr.AlreadyExists("game %s already suggested", gameID)
		}
		if n.VotesHeldBy(actor.UID) >= models.MaxVotesPerUser {
			return nil, apperr.Validation("vote limit reached (%d per game night)", models.MaxVotesPerUser)
		}

		updated, ok, err := s.nights.AddSuggestion(ctx, id, n.Rev, gameID, models.Suggestion{
			SuggestedBy: actor.UID,
			Votes:       []string{actor.UID},
		})
		if err != nil {
			return nil, err
		}
		if ok {
			s.metrics.Suggestions.Inc()
			s.publish(ctx, updated)
			return updated, nil
		}
		// otra escritura cambió la noche entre la lectura y el update
	}
	return nil, apperr.New(apperr.KindConflict, "game night changed concurrently, try again")
}

// ToggleVote agrega o quita el voto de actor por gameID. Devuelve la noche
// actualizada y si el usuario quedó votando.
func (s *GameNightService) ToggleVote(ctx context.Context, actor models.Identity, id primitive.ObjectID, gameID string) (*models.GameNight, bool, error) {
	if err := validateGameID(gameID); err != nil {
		return nil, false, err
	}

	for attempt := 0; attempt < maxRevAttempts; attempt++ {
		if attempt > 0 {
			s.metrics.VoteRetries.Inc()
			if err := s.backoff(ctx, attempt); err != nil {
				return nil, false, err
			}
		}

		n, err := s.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if _, ok := n.SuggestedGames[gameID]; !ok {
			return nil, false, apperr.NotFound("game %s not suggested for this game night", gameID)
		}

		add := !n.HasVoted(gameID, actor.UID)
		if add && n.VotesHeldBy(actor.UID) >= models.MaxVotesPerUser {
			return nil, false, apperr.Validation("vote limit reached (%d per game night)", models.MaxVotesPerUser)
		}

		updated, ok, err := s.nights.UpdateVotes(ctx, id, n.Rev, gameID, actor.UID, add)
		if err != nil {
			return nil, false, err
		}
		if ok {
			direction := "remove"
			if add {
				direction = "add"
			}
			s.metrics.Votes.WithLabelValues(direction).Inc()
			s.publish(ctx, updated)
			return updated, add, nil
		}
	}
	return nil, false, apperr.New(apperr.KindConflict, "game night changed concurrently, try again")
}

// SelectGames reemplaza la lista de juegos elegidos. No valida que los ids
// existan ni que hayan sido sugeridos.
func (s *GameNightService) SelectGames(ctx context.Context, sess *models.Session, id primitive.ObjectID, gameIDs []string) (*models.GameNight, error) {
	if gameIDs == nil {
		return nil, apperr.Validation("gameIds is required")
	}
	for _, g := range gameIDs {
		if err := validateGameID(g); err != nil {
			return nil, err
		}
	}

	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := organizerOrAdmin(sess, n); err != nil {
		return nil, err
	}

	updated, err := s.nights.SetSelectedGames(ctx, id, gameIDs)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated)
	return updated, nil
}

// SetAttendance registra el RSVP de actor con un snapshot de su identidad.
func (s *GameNightService) SetAttendance(ctx context.Context, actor models.Identity, id primitive.ObjectID, status models.AttendanceStatus) (*models.GameNight, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid status %q (going|maybe|not-going)", status)
	}

	updated, err := s.nights.SetAttendee(ctx, id, actor.UID, models.Attendee{
		Status:      status,
		DisplayName: actor.DisplayName,
		PhotoURL:    actor.PhotoURL,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated)
	return updated, nil
}

func (s *GameNightService) SetNotes(ctx context.Context, id primitive.ObjectID, notes string) (*models.GameNight, error) {
	if len(notes) > maxNotesLength {
		return nil, apperr.Validation("notes exceed %d bytes", maxNotesLength)
	}

	updated, err := s.nights.SetNotes(ctx, id, notes)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated)
	return updated, nil
}

// Complete cierra la noche una sola vez y suma una asistencia a cada
// invitado "going". Los contadores se actualizan uno por uno: si alguno
// falla se devuelve el error, pero la noche ya quedó cerrada.
func (s *GameNightService) Complete(ctx context.Context, sess *models.Session, id primitive.ObjectID) (*models.GameNight, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := organizerOrAdmin(sess, n); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updated, err := s.nights.MarkCompleted(ctx, id, now)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated)

	var errs []error
	for _, uid := range updated.GoingUIDs() {
		a := updated.Attendees[uid]
		if _, _, err := s.profiles.GetOrCreate(ctx, newProfile(models.Identity{
			UID:         uid,
			DisplayName: a.DisplayName,
			PhotoURL:    a.PhotoURL,
		}, now)); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.profiles.IncrementAttended(ctx, uid, 1, now); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		s.log.Errorw("attendance counters partially updated", "gameNight", id.Hex(), "errors", len(errs))
		return updated, errors.Join(errs...)
	}
	return updated, nil
}

func (s *GameNightService) publish(ctx context.Context, n *models.GameNight) {
	if err := s.feed.Publish(ctx, n.ID.Hex(), n); err != nil {
		s.log.Warnw("change feed publish failed", "gameNight", n.ID.Hex(), "err", err)
	}
}

func validateGameID(id string) error {
	if !gameIDPattern.MatchString(id) {
		return apperr.Validation("invalid game id %q", id)
	}
	return nil
}

func organizerOrAdmin(sess *models.Session, n *models.GameNight) error {
	if sess == nil {
		return apperr.ErrUnauthenticated
	}
	if sess.Admin || n.IsOrganizer(sess.Identity.UID) {
		return nil
	}
	return apperr.Forbidden("only the organizer or an admin can do this")
}
