package repository

import (
	"context"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/db"
	"gamenight-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GameNightRepository: todas las mutaciones son un único UpdateOne/
// FindOneAndUpdate y suben rev, así el servicio puede hacer escrituras
// condicionadas a la revisión leída.
type GameNightRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewGameNightRepository(database *mongo.Database) *GameNightRepository {
	return &GameNightRepository{
		col: database.Collection(db.GameNightsCollection),
		now: time.Now,
	}
}

func (r *GameNightRepository) Insert(ctx context.Context, n *models.GameNight) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, n)
	return apperr.Store("gameNights.insert", err)
}

func (r *GameNightRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.GameNight, error) {
	var n models.GameNight
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("gameNights.findOne", err)
	}
	return &n, nil
}

// List devuelve las noches ordenadas por fecha. Con from != nil solo las
// que empiezan desde ese instante.
func (r *GameNightRepository) List(ctx context.Context, from *time.Time, limit int) ([]models.GameNight, error) {
	filter := bson.M{}
	if from != nil {
		filter["date"] = bson.M{"$gte": *from}
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Store("gameNights.find", err)
	}
	defer cur.Close(ctx)

	out := []models.GameNight{}
	for cur.Next(ctx) {
		var n models.GameNight
		if err := cur.Decode(&n); err != nil {
			return nil, apperr.Store("gameNights.decode", err)
		}
		out = append(out, n)
	}
	return out, apperr.Store("gameNights.cursor", cur.Err())
}

// AddSuggestion inserta la sugerencia solo si la noche sigue en la revisión
// rev y gameID todavía no está en suggestedGames. ok=false si el filtro no
// matcheó; el servicio relee para saber por qué.
func (r *GameNightRepository) AddSuggestion(ctx context.Context, id primitive.ObjectID, rev int64, gameID string, s models.Suggestion) (*models.GameNight, bool, error) {
	path := "suggestedGames." + gameID
	filter := bson.M{"_id": id, "rev": rev, path: bson.M{"$exists": false}}

	n, err := r.apply(ctx, filter, bson.M{"$set": bson.M{path: s}})
	if err != nil {
		return nil, false, err
	}
	return n, n != nil, nil
}

// UpdateVotes agrega ($push) o quita ($pull) el voto de uid solo si la
// noche sigue en la revisión rev. ok=false indica que otra escritura ganó.
func (r *GameNightRepository) UpdateVotes(ctx context.Context, id primitive.ObjectID, rev int64, gameID, uid string, add bool) (*models.GameNight, bool, error) {
	path := "suggestedGames." + gameID + ".votes"
	filter := bson.M{"_id": id, "rev": rev}

	op := "$pull"
	if add {
		op = "$push"
	}

	n, err := r.apply(ctx, filter, bson.M{op: bson.M{path: uid}})
	if err != nil {
		return nil, false, err
	}
	return n, n != nil, nil
}

func (r *GameNightRepository) SetAttendee(ctx context.Context, id primitive.ObjectID, uid string, a models.Attendee) (*models.GameNight, error) {
	return r.setField(ctx, id, "attendees."+uid, a)
}

func (r *GameNightRepository) SetNotes(ctx context.Context, id primitive.ObjectID, notes string) (*models.GameNight, error) {
	return r.setField(ctx, id, "notes", notes)
}

func (r *GameNightRepository) SetSelectedGames(ctx context.Context, id primitive.ObjectID, gameIDs []string) (*models.GameNight, error) {
	if gameIDs == nil {
		gameIDs = []string{}
	}
	return r.setField(ctx, id, "selectedGames", gameIDs)
}

// MarkCompleted setea completedAt una sola vez.
func (r *GameNightRepository) MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.GameNight, error) {
	filter := bson.M{"_id": id, "completedAt": bson.M{"$exists": false}}

	n, err := r.apply(ctx, filter, bson.M{"$set": bson.M{"completedAt": at}})
	if err != nil || n != nil {
		return n, err
	}
	return nil, r.missOrExists(ctx, id, "game night already completed")
}

func (r *GameNightRepository) setField(ctx context.Context, id primitive.ObjectID, path string, value any) (*models.GameNight, error) {
	n, err := r.apply(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{path: value}})
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperr.NotFound("game night not found")
	}
	return n, nil
}

// apply corre la actualización sumando rev y updatedAt y devuelve el
// documento resultante, o nil si el filtro no matcheó.
func (r *GameNightRepository) apply(ctx context.Context, filter bson.M, update bson.M) (*models.GameNight, error) {
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = r.now().UTC()
	update["$set"] = set
	update["$inc"] = bson.M{"rev": 1}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var n models.GameNight
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("gameNights.update", err)
	}
	return &n, nil
}

func (r *GameNightRepository) missOrExists(ctx context.Context, id primitive.ObjectID, existsMsg string) error {
	count, err := r.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return apperr.Store("gameNights.count", err)
	}
	if count == 0 {
		return apperr.NotFound("game night not found")
	}
	return apperr.AlreadyExists(existsMsg)
}
