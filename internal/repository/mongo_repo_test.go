package repository

import (
	"context"
	"testing"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func toDoc(t *testing.T, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func commandError() bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Name: "InternalError", Message: "boom"})
}

func TestGameRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	catan := models.Game{
		ID:        primitive.NewObjectID(),
		Name:      "Catan",
		CreatedBy: models.Creator{UID: "U1"},
		OwnedBy:   []string{"U1", "U2"},
	}

	mt.Run("find by id", func(mt *mtest.T) {
		repo := NewGameRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "gamenight.games", mtest.FirstBatch, toDoc(t, catan)))

		g, err := repo.FindByID(context.Background(), catan.ID)
		require.NoError(t, err)
		assert.Equal(t, "Catan", g.Name)
		assert.Equal(t, []string{"U1", "U2"}, g.OwnedBy)
	})

	mt.Run("find by id missing", func(mt *mtest.T) {
		repo := NewGameRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "gamenight.games", mtest.FirstBatch))

		g, err := repo.FindByID(context.Background(), primitive.NewObjectID())
		require.NoError(t, err)
		assert.Nil(t, g)
	})

	mt.Run("find owned by", func(mt *mtest.T) {
		repo := NewGameRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "gamenight.games", mtest.FirstBatch, toDoc(t, catan)),
			mtest.CreateCursorResponse(0, "gamenight.games", mtest.NextBatch),
		)

		games, err := repo.FindOwnedBy(context.Background(), "U2")
		require.NoError(t, err)
		require.Len(t, games, 1)
		assert.Equal(t, catan.ID, games[0].ID)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "find", started.CommandName)
		assert.Equal(t, "U2", started.Command.Lookup("filter", "ownedBy").StringValue())
	})

	mt.Run("add owner uses addToSet", func(mt *mtest.T) {
		repo := NewGameRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(t, repo.AddOwner(context.Background(), catan.ID, "U3"))

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		update := started.Command.Lookup("updates").Array().Index(0).Value().Document().Lookup("u").Document()
		assert.Equal(t, "U3", update.Lookup("$addToSet", "ownedBy").StringValue())
	})

	mt.Run("remove owner on missing game", func(mt *mtest.T) {
		repo := NewGameRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := repo.RemoveOwner(context.Background(), primitive.NewObjectID(), "U1")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	mt.Run("store failure", func(mt *mtest.T) {
		repo := NewGameRepository(mt.DB)
		mt.AddMockResponses(commandError())

		_, err := repo.FindAll(context.Background())
		assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
	})
}

func TestGameNightRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	night := models.GameNight{
		ID:   primitive.NewObjectID(),
		Date: time.Date(2024, 6, 5, 19, 30, 0, 0, time.UTC),
		SuggestedGames: map[string]models.Suggestion{
			"wingspan-id": {SuggestedBy: "U1", Votes: []string{"U1", "U2"}},
		},
		Rev: 4,
	}

	mt.Run("update votes applies rev filter", func(mt *mtest.T) {
		repo := NewGameNightRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(t, night)}))

		n, ok, err := repo.UpdateVotes(context.Background(), night.ID, 3, "wingspan-id", "U2", true)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"U1", "U2"}, n.SuggestedGames["wingspan-id"].Votes)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(t, int64(3), cmd.Lookup("query", "rev").AsInt64())
		assert.Equal(t, "U2", cmd.Lookup("update", "$push", "suggestedGames.wingspan-id.votes").StringValue())
		assert.Equal(t, int64(1), cmd.Lookup("update", "$inc", "rev").AsInt64())
	})

	mt.Run("stale revision", func(mt *mtest.T) {
		repo := NewGameNightRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		n, ok, err := repo.AddSuggestion(context.Background(), night.ID, 1, "azul", models.Suggestion{SuggestedBy: "U1", Votes: []string{"U1"}})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, n)
	})

	mt.Run("set notes on missing night", func(mt *mtest.T) {
		repo := NewGameNightRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.SetNotes(context.Background(), primitive.NewObjectID(), "x")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	mt.Run("mark completed twice", func(mt *mtest.T) {
		repo := NewGameNightRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "gamenight.gameNights", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)

		_, err := repo.MarkCompleted(context.Background(), night.ID, time.Now())
		assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewGameNightRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "gamenight.gameNights", mtest.FirstBatch, toDoc(t, night)),
			mtest.CreateCursorResponse(0, "gamenight.gameNights", mtest.NextBatch),
		)

		from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		nights, err := repo.List(context.Background(), &from, 10)
		require.NoError(t, err)
		require.Len(t, nights, 1)
		assert.Equal(t, night.Date, nights[0].Date)
	})
}

func TestUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	profile := models.UserProfile{UID: "U1", DisplayName: "Ana", CreatedAt: now, LastUpdated: now}

	mt.Run("get or create inserts", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 1},
				bson.E{Key: "nModified", Value: 0},
				bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "U1"}}}},
			),
			mtest.CreateCursorResponse(1, "gamenight.users", mtest.FirstBatch, toDoc(t, profile)),
		)

		p, created, err := repo.GetOrCreate(context.Background(), &profile)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "Ana", p.DisplayName)
	})

	mt.Run("get or create after duplicate key", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			mtest.CreateCursorResponse(1, "gamenight.users", mtest.FirstBatch, toDoc(t, profile)),
		)

		p, created, err := repo.GetOrCreate(context.Background(), &profile)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "U1", p.UID)
	})

	mt.Run("increment uses inc", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(t, repo.IncrementAttended(context.Background(), "U1", 1, now))

		update := mt.GetStartedEvent().Command.Lookup("updates").Array().Index(0).Value().Document().Lookup("u").Document()
		assert.Equal(t, int64(1), update.Lookup("$inc", "gameNightsAttended").AsInt64())
	})

	mt.Run("update missing profile", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		n := 3
		err := repo.Update(context.Background(), "nobody", models.ProfileUpdate{GameNightsAttended: &n}, now)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestSettingsRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get none", func(mt *mtest.T) {
		repo := NewSettingsRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "gamenight.settings", mtest.FirstBatch))

		s, err := repo.Get(context.Background())
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	mt.Run("save upserts the single document", func(mt *mtest.T) {
		repo := NewSettingsRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		s := models.DefaultSettings()
		s.ID = ""
		require.NoError(t, repo.Save(context.Background(), &s))
		assert.Equal(t, models.SettingsID, s.ID)

		upd := mt.GetStartedEvent().Command.Lookup("updates").Array().Index(0).Value().Document()
		assert.True(t, upd.Lookup("upsert").Boolean())
		assert.Equal(t, models.SettingsID, upd.Lookup("q", "_id").StringValue())
	})
}
