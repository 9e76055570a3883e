package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Creator es el snapshot de identidad que se guarda en los documentos.
type Creator struct {
	UID         string `json:"uid" bson:"uid"`
	DisplayName string `json:"displayName,omitempty" bson:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty" bson:"photoURL,omitempty"`
}

// Documento de la colección games
type Game struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	MinPlayers  int                `json:"minPlayers" bson:"minPlayers"`
	MaxPlayers  int                `json:"maxPlayers" bson:"maxPlayers"`
	ImageURL    string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	CreatedBy   Creator            `json:"createdBy" bson:"createdBy"`
	OwnedBy     []string           `json:"ownedBy" bson:"ownedBy"`
}

// Payload para crear un juego (lo que expone la API)
type GameCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MinPlayers  int    `json:"minPlayers"`
	MaxPlayers  int    `json:"maxPlayers"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

func (g *Game) IsOwnedBy(uid string) bool {
	return contains(g.OwnedBy, uid)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
