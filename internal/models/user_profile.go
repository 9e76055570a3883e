package models

import "time"

// Documento de la colección users. OwnedGames no se persiste: se arma al
// leer a partir de games.ownedBy.
type UserProfile struct {
	UID                string    `json:"uid" bson:"_id"`
	DisplayName        string    `json:"displayName" bson:"displayName"`
	PhotoURL           string    `json:"photoURL" bson:"photoURL"`
	FavoriteGameID     *string   `json:"favoriteGameId" bson:"favoriteGameId"`
	OwnedGames         []string  `json:"ownedGames" bson:"-"`
	GameNightsAttended int       `json:"gameNightsAttended" bson:"gameNightsAttended"`
	CreatedAt          time.Time `json:"createdAt" bson:"createdAt"`
	LastUpdated        time.Time `json:"lastUpdated" bson:"lastUpdated"`
}

// ProfileUpdate es el subconjunto de campos editables. Los campos de
// identidad (uid, displayName, photoURL) no están: los sincroniza el login.
// SetFavorite distingue "no tocar" de "borrar" (FavoriteGameID nil).
type ProfileUpdate struct {
	SetFavorite        bool
	FavoriteGameID     *string
	GameNightsAttended *int
}

func (u ProfileUpdate) Empty() bool {
	return !u.SetFavorite && u.GameNightsAttended == nil
}
