package repository

import (
	"context"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/db"
	"gamenight-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(database *mongo.Database) *UserRepository {
	return &UserRepository{col: database.Collection(db.UsersCollection)}
}

func (r *UserRepository) FindByID(ctx context.Context, uid string) (*models.UserProfile, error) {
	var u models.UserProfile
	err := r.col.FindOne(ctx, bson.M{"_id": uid}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("users.findOne", err)
	}
	return &u, nil
}

// GetOrCreate hace un upsert con $setOnInsert: si el documento ya existe no
// se toca nada, si no existe se crea con los valores de p. Dos primeros
// accesos simultáneos pueden chocar en la clave _id; en ese caso el perdedor
// relee el documento que creó el otro.
func (r *UserRepository) GetOrCreate(ctx context.Context, p *models.UserProfile) (*models.UserProfile, bool, error) {
	update := bson.M{"$setOnInsert": bson.M{
		"displayName":        p.DisplayName,
		"photoURL":           p.PhotoURL,
		"favoriteGameId":     p.FavoriteGameID,
		"gameNightsAttended": p.GameNightsAttended,
		"createdAt":          p.CreatedAt,
		"lastUpdated":        p.LastUpdated,
	}}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": p.UID}, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		res, err = &mongo.UpdateResult{}, nil
	}
	if err != nil {
		return nil, false, apperr.Store("users.upsert", err)
	}

	u, err := r.FindByID(ctx, p.UID)
	if err != nil {
		return nil, false, err
	}
	if u == nil {
		return nil, false, apperr.Store("users.upsert", mongo.ErrNoDocuments)
	}
	return u, res.UpsertedCount == 1, nil
}

// Update aplica un $set parcial con los campos permitidos.
func (r *UserRepository) Update(ctx context.Context, uid string, upd models.ProfileUpdate, now time.Time) error {
	set := bson.M{"lastUpdated": now}
	if upd.SetFavorite {
		set["favoriteGameId"] = upd.FavoriteGameID
	}
	if upd.GameNightsAttended != nil {
		set["gameNightsAttended"] = *upd.GameNightsAttended
	}
	return r.updateOne(ctx, uid, bson.M{"$set": set})
}

// IncrementAttended suma n con $inc, sin leer antes.
func (r *UserRepository) IncrementAttended(ctx context.Context, uid string, n int, now time.Time) error {
	return r.updateOne(ctx, uid, bson.M{
		"$inc": bson.M{"gameNightsAttended": n},
		"$set": bson.M{"lastUpdated": now},
	})
}

// SyncIdentity copia nombre y foto del proveedor. Es el único camino que
// escribe campos de identidad.
func (r *UserRepository) SyncIdentity(ctx context.Context, uid, displayName, photoURL string, now time.Time) error {
	return r.updateOne(ctx, uid, bson.M{"$set": bson.M{
		"displayName": displayName,
		"photoURL":    photoURL,
		"lastUpdated": now,
	}})
}

func (r *UserRepository) updateOne(ctx context.Context, uid string, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": uid}, update)
	if err != nil {
		return apperr.Store("users.update", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user profile not found")
	}
	return nil
}
