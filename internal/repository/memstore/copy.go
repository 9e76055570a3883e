package memstore

import (
	"errors"

	"gamenight-api/internal/models"
)

var (
	errDuplicateID = errors.New("duplicate _id")
	errStaleRev    = errors.New("stale revision")
)

// Los documentos se copian al entrar y al salir para que nadie fuera del
// lock comparta slices o mapas con el store.

func copyGame(g *models.Game) *models.Game {
	cp := *g
	cp.OwnedBy = append([]string{}, g.OwnedBy...)
	return &cp
}

func copyNight(n *models.GameNight) *models.GameNight {
	cp := *n
	cp.Attendees = make(map[string]models.Attendee, len(n.Attendees))
	for k, v := range n.Attendees {
		cp.Attendees[k] = v
	}
	cp.SuggestedGames = make(map[string]models.Suggestion, len(n.SuggestedGames))
	for k, v := range n.SuggestedGames {
		cp.SuggestedGames[k] = models.Suggestion{
			SuggestedBy: v.SuggestedBy,
			Votes:       append([]string{}, v.Votes...),
		}
	}
	cp.SelectedGames = append([]string{}, n.SelectedGames...)
	if n.CompletedAt != nil {
		at := *n.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

func copyProfile(p *models.UserProfile) *models.UserProfile {
	cp := *p
	cp.FavoriteGameID = copyStrPtr(p.FavoriteGameID)
	if p.OwnedGames != nil {
		cp.OwnedGames = append([]string{}, p.OwnedGames...)
	}
	return &cp
}

func copyStrPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func addToSet(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func pull(list []string, v string) []string {
	out := list[:0:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
