package repository

import (
	"context"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/db"
	"gamenight-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SettingsRepository struct {
	col *mongo.Collection
}

func NewSettingsRepository(database *mongo.Database) *SettingsRepository {
	return &SettingsRepository{col: database.Collection(db.SettingsCollection)}
}

// Get devuelve nil si nunca se guardaron settings.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	err := r.col.FindOne(ctx, bson.M{"_id": models.SettingsID}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("settings.findOne", err)
	}
	return &s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s *models.Settings) error {
	s.ID = models.SettingsID
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": models.SettingsID}, s, options.Replace().SetUpsert(true))
	return apperr.Store("settings.replace", err)
}
