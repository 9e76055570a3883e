package db

import (
	"context"
	"fmt"
	"time"

	"gamenight-api/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Nombres de colecciones
const (
	GamesCollection      = "games"
	GameNightsCollection = "gameNights"
	UsersCollection      = "users"
	SettingsCollection   = "settings"
)

// Connect abre el cliente y valida la conexión con un ping.
func Connect(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetTimeout(15 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.MongoDB), nil
}

// EnsureIndexes crea los índices que usan los filtros del servicio.
// CreateMany es idempotente si el índice ya existe con la misma definición.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	games := database.Collection(GamesCollection)
	if _, err := games.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownedBy", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("games indexes: %w", err)
	}

	nights := database.Collection(GameNightsCollection)
	if _, err := nights.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "date", Value: 1}},
	}); err != nil {
		return fmt.Errorf("gameNights indexes: %w", err)
	}
	return nil
}
