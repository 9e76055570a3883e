package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AttendanceStatus string

// Estados posibles de un RSVP
const (
	StatusGoing    AttendanceStatus = "going"
	StatusMaybe    AttendanceStatus = "maybe"
	StatusNotGoing AttendanceStatus = "not-going"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusGoing, StatusMaybe, StatusNotGoing:
		return true
	}
	return false
}

// MaxVotesPerUser es la cantidad de votos simultáneos que un usuario puede
// tener entre todas las sugerencias de una noche.
const MaxVotesPerUser = 3

type Attendee struct {
	Status      AttendanceStatus `json:"status" bson:"status"`
	DisplayName string           `json:"displayName,omitempty" bson:"displayName,omitempty"`
	PhotoURL    string           `json:"photoURL,omitempty" bson:"photoURL,omitempty"`
}

type Suggestion struct {
	SuggestedBy string   `json:"suggestedBy" bson:"suggestedBy"`
	Votes       []string `json:"votes" bson:"votes"`
}

// Documento de la colección gameNights
type GameNight struct {
	ID             primitive.ObjectID    `json:"id" bson:"_id,omitempty"`
	Date           time.Time             `json:"date" bson:"date"`
	Timezone       string                `json:"timezone" bson:"timezone"`
	Location       string                `json:"location,omitempty" bson:"location,omitempty"`
	CreatedAt      time.Time             `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt" bson:"updatedAt"`
	CreatedBy      Creator               `json:"createdBy" bson:"createdBy"`
	Attendees      map[string]Attendee   `json:"attendees" bson:"attendees"`
	SuggestedGames map[string]Suggestion `json:"suggestedGames" bson:"suggestedGames"`
	SelectedGames  []string              `json:"selectedGames" bson:"selectedGames"`
	Notes          string                `json:"notes" bson:"notes"`
	CompletedAt    *time.Time            `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	Rev            int64                 `json:"rev" bson:"rev"`
}

// Payload del formulario de creación. Date es YYYY-MM-DD y Time es HH:MM.
type GameNightFormData struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// HasVoted indica si uid votó por gameID.
func (n *GameNight) HasVoted(gameID, uid string) bool {
	s, ok := n.SuggestedGames[gameID]
	return ok && contains(s.Votes, uid)
}

// VotesHeldBy cuenta los votos de uid entre todas las sugerencias.
func (n *GameNight) VotesHeldBy(uid string) int {
	count := 0
	for _, s := range n.SuggestedGames {
		if contains(s.Votes, uid) {
			count++
		}
	}
	return count
}

// GoingUIDs devuelve los asistentes confirmados.
func (n *GameNight) GoingUIDs() []string {
	var out []string
	for uid, a := range n.Attendees {
		if a.Status == StatusGoing {
			out = append(out, uid)
		}
	}
	return out
}

func (n *GameNight) IsOrganizer(uid string) bool {
	return n.CreatedBy.UID == uid
}
