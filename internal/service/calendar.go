package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gamenight-api/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	calendarBase     = "https://calendar.google.com/calendar/render"
	calendarDuration = 3*time.Hour + 30*time.Minute
	calendarStamp    = "20060102T150405Z"
)

// CalendarLink arma el link "Add to Google Calendar" de la noche, con los
// juegos elegidos y las notas en la descripción.
func (s *GameNightService) CalendarLink(ctx context.Context, id primitive.ObjectID) (string, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(n.SelectedGames))
	for _, gid := range n.SelectedGames {
		name := gid
		if oid, err := primitive.ObjectIDFromHex(gid); err == nil {
			if g, err := s.games.FindByID(ctx, oid); err == nil && g != nil {
				name = g.Name
			}
		}
		names = append(names, name)
	}

	return BuildCalendarURL(n, names), nil
}

// BuildCalendarURL no toca el store; gameNames ya viene resuelto.
func BuildCalendarURL(n *models.GameNight, gameNames []string) string {
	start := n.Date.UTC()
	end := start.Add(calendarDuration)

	var details strings.Builder
	if n.Location != "" {
		fmt.Fprintf(&details, "Location: %s\n\n", n.Location)
	}
	fmt.Fprintf(&details, "Games: %s", strings.Join(gameNames, ", "))
	if n.Notes != "" {
		fmt.Fprintf(&details, "\n\nNotes: %s", n.Notes)
	}

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", "Game Night")
	q.Set("dates", start.Format(calendarStamp)+"/"+end.Format(calendarStamp))
	q.Set("details", details.String())
	if n.Location != "" {
		q.Set("location", n.Location)
	}
	return calendarBase + "?" + q.Encode()
}
