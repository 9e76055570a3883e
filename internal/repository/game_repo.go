package repository

import (
	"context"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/db"
	"gamenight-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type GameRepository struct {
	col *mongo.Collection
}

func NewGameRepository(database *mongo.Database) *GameRepository {
	return &GameRepository{col: database.Collection(db.GamesCollection)}
}

func (r *GameRepository) Insert(ctx context.Context, g *models.Game) error {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if g.OwnedBy == nil {
		g.OwnedBy = []string{}
	}
	_, err := r.col.InsertOne(ctx, g)
	return apperr.Store("games.insert", err)
}

func (r *GameRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Game, error) {
	var g models.Game
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("games.findOne", err)
	}
	return &g, nil
}

func (r *GameRepository) FindByName(ctx context.Context, name string) (*models.Game, error) {
	var g models.Game
	err := r.col.FindOne(ctx, bson.M{"name": name}).Decode(&g)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("games.findByName", err)
	}
	return &g, nil
}

// FindAll trae el catálogo completo ordenado por nombre. Sin paginación:
// el catálogo de un grupo es chico.
func (r *GameRepository) FindAll(ctx context.Context) ([]models.Game, error) {
	return r.find(ctx, bson.M{})
}

// FindOwnedBy usa el filtro de igualdad sobre array: {ownedBy: uid} matchea
// si el array contiene uid.
func (r *GameRepository) FindOwnedBy(ctx context.Context, uid string) ([]models.Game, error) {
	return r.find(ctx, bson.M{"ownedBy": uid})
}

func (r *GameRepository) find(ctx context.Context, filter bson.M) ([]models.Game, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Store("games.find", err)
	}
	defer cur.Close(ctx)

	out := []models.Game{}
	for cur.Next(ctx) {
		var g models.Game
		if err := cur.Decode(&g); err != nil {
			return nil, apperr.Store("games.decode", err)
		}
		out = append(out, g)
	}
	return out, apperr.Store("games.cursor", cur.Err())
}

// AddOwner agrega uid a ownedBy con $addToSet: atómico e idempotente.
func (r *GameRepository) AddOwner(ctx context.Context, id primitive.ObjectID, uid string) error {
	return r.updateOwners(ctx, id, bson.M{"$addToSet": bson.M{"ownedBy": uid}})
}

// RemoveOwner quita uid de ownedBy con $pull; si no estaba no pasa nada.
func (r *GameRepository) RemoveOwner(ctx context.Context, id primitive.ObjectID, uid string) error {
	return r.updateOwners(ctx, id, bson.M{"$pull": bson.M{"ownedBy": uid}})
}

func (r *GameRepository) updateOwners(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return apperr.Store("games.updateOwners", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("game not found")
	}
	return nil
}
