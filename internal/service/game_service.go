package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/metrics"
	"gamenight-api/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const catalogCacheKey = "games:all"

type GameService struct {
	games    GameStore
	cache    JSONCache
	cacheTTL time.Duration
	metrics  *metrics.Registry
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewGameService(games GameStore, cache JSONCache, cacheTTL time.Duration, m *metrics.Registry, log *zap.SugaredLogger) *GameService {
	if cache == nil {
		cache = noopCache{}
	}
	return &GameService{
		games:    games,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

func validateGame(req *models.GameCreateRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.ImageURL = strings.TrimSpace(req.ImageURL)

	if req.Name == "" {
		return apperr.Validation("name is required")
	}
	if req.Description == "" {
		return apperr.Validation("description is required")
	}
	if req.MinPlayers < 1 {
		return apperr.Validation("minPlayers must be at least 1")
	}
	if req.MinPlayers > req.MaxPlayers {
		return apperr.Validation("minPlayers (%d) cannot exceed maxPlayers (%d)", req.MinPlayers, req.MaxPlayers)
	}
	return nil
}

// Create registra el juego; el creador queda como primer dueño.
func (s *GameService) Create(ctx context.Context, actor models.Identity, req models.GameCreateRequest) (*models.Game, error) {
	return s.insert(ctx, actor, req, []string{actor.UID})
}

func (s *GameService) insert(ctx context.Context, actor models.Identity, req models.GameCreateRequest, owners []string) (*models.Game, error) {
	if err := validateGame(&req); err != nil {
		return nil, err
	}

	g := &models.Game{
		ID:          primitive.NewObjectID(),
		Name:        req.Name,
		Description: req.Description,
		MinPlayers:  req.MinPlayers,
		MaxPlayers:  req.MaxPlayers,
		ImageURL:    req.ImageURL,
		CreatedAt:   s.now().UTC(),
		CreatedBy:   models.Creator{UID: actor.UID, DisplayName: actor.DisplayName},
		OwnedBy:     owners,
	}

	if err := s.games.Insert(ctx, g); err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return g, nil
}

func (s *GameService) Get(ctx context.Context, id primitive.ObjectID) (*models.Game, error) {
	g, err := s.games.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperr.NotFound("game %s not found", id.Hex())
	}
	return g, nil
}

// List devuelve el catálogo completo, pasando por el cache si hay.
func (s *GameService) List(ctx context.Context) ([]models.Game, error) {
	var cached []models.Game
	if ok, err := s.cache.GetJSON(ctx, catalogCacheKey, &cached); err == nil && ok {
		s.metrics.CacheHits.WithLabelValues("catalog").Inc()
		return cached, nil
	} else if err != nil {
		s.log.Warnw("catalog cache read failed", "err", err)
	}
	s.metrics.CacheMisses.WithLabelValues("catalog").Inc()

	games, err := s.games.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, catalogCacheKey, games, s.cacheTTL); err != nil {
		s.log.Warnw("catalog cache write failed", "err", err)
	}
	return games, nil
}

func (s *GameService) ListOwnedBy(ctx context.Context, uid string) ([]models.Game, error) {
	if uid == "" {
		return nil, apperr.Validation("uid is required")
	}
	return s.games.FindOwnedBy(ctx, uid)
}

// AddOwner marca a uid como dueño. Solo el propio usuario o un admin.
func (s *GameService) AddOwner(ctx context.Context, sess *models.Session, gameID primitive.ObjectID, uid string) error {
	if err := canActFor(sess, uid); err != nil {
		return err
	}
	if err := s.games.AddOwner(ctx, gameID, uid); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// RemoveOwner quita a uid de los dueños; si no estaba es un no-op.
func (s *GameService) RemoveOwner(ctx context.Context, sess *models.Session, gameID primitive.ObjectID, uid string) error {
	if err := canActFor(sess, uid); err != nil {
		return err
	}
	if err := s.games.RemoveOwner(ctx, gameID, uid); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// SeedResult resume una corrida del seeder.
type SeedResult struct {
	Created []string
	Skipped []string
}

// Seed crea los juegos que todavía no existen (por nombre), sin dueños. Se
// detiene en el primer error; lo creado hasta ahí queda.
func (s *GameService) Seed(ctx context.Context, actor models.Identity, fixtures []models.GameCreateRequest) (SeedResult, error) {
	var res SeedResult
	for _, f := range fixtures {
		existing, err := s.games.FindByName(ctx, strings.TrimSpace(f.Name))
		if err != nil {
			return res, err
		}
		if existing != nil {
			res.Skipped = append(res.Skipped, existing.Name)
			continue
		}

		g, err := s.insert(ctx, actor, f, []string{})
		if err != nil {
			return res, fmt.Errorf("seed %q: %w", f.Name, err)
		}
		res.Created = append(res.Created, g.Name)
	}
	return res, nil
}

func (s *GameService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		s.log.Warnw("catalog cache invalidation failed", "err", err)
	}
}

// canActFor aplica la política de ownership: cada uno maneja su propia
// colección, los admins la de cualquiera.
func canActFor(sess *models.Session, uid string) error {
	if sess == nil {
		return apperr.ErrUnauthenticated
	}
	if uid == "" {
		return apperr.Validation("uid is required")
	}
	if sess.Identity.UID != uid && !sess.Admin {
		return apperr.Forbidden("cannot change another user's collection")
	}
	return nil
}
