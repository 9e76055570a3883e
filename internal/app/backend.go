// Package app arma los stores según STORE_BACKEND. Lo comparten cmd/api y
// cmd/seed.
package app

import (
	"context"
	"fmt"

	"gamenight-api/internal/cache"
	"gamenight-api/internal/config"
	"gamenight-api/internal/db"
	"gamenight-api/internal/handler"
	"gamenight-api/internal/realtime"
	"gamenight-api/internal/repository"
	"gamenight-api/internal/repository/memstore"
	"gamenight-api/internal/service"

	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type Backend struct {
	Games      service.GameStore
	GameNights service.GameNightStore
	Profiles   service.ProfileStore
	Settings   service.SettingsStore
	Sessions   service.SessionStore

	// Cache es nil con el backend en memoria
	Cache service.JSONCache
	Feed  realtime.Feed

	Checks  map[string]handler.Check
	closers []func(context.Context) error
}

func Open(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Backend, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		log.Warnw("using in-memory store, data is lost on restart")
		mem := memstore.New()
		return &Backend{
			Games:      mem.Games(),
			GameNights: mem.GameNights(),
			Profiles:   mem.Users(),
			Settings:   mem.Settings(),
			Sessions:   mem.Sessions(),
			Feed:       realtime.NewMemoryFeed(),
			Checks:     map[string]handler.Check{},
		}, nil

	case config.StoreMongo:
		client, database, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Infow("mongo connected", "db", cfg.MongoDB)

		rdb, err := cache.NewRedis(ctx, cfg)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Infow("redis connected", "addr", cfg.RedisAddr)

		return &Backend{
			Games:      repository.NewGameRepository(database),
			GameNights: repository.NewGameNightRepository(database),
			Profiles:   repository.NewUserRepository(database),
			Settings:   repository.NewSettingsRepository(database),
			Sessions:   repository.NewSessionRepository(rdb),
			Cache:      cache.New(rdb, "gamenight:cache:"),
			Feed:       realtime.NewRedisFeed(rdb),
			Checks: map[string]handler.Check{
				"mongo": func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
				"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			},
			closers: []func(context.Context) error{
				func(context.Context) error { return rdb.Close() },
				client.Disconnect,
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func (b *Backend) Close(ctx context.Context) error {
	var first error
	for _, c := range b.closers {
		if err := c(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
