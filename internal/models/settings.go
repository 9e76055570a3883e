package models

import "time"

// Reglas de recurrencia soportadas por el panel de administración
const (
	RecurrenceWeekly         = "weekly"
	RecurrenceEveryTwoWeeks  = "every-two-weeks"
	RecurrenceFirstWednesday = "first-wednesday"
	RecurrenceSecondFriday   = "second-friday"
	RecurrenceLastSaturday   = "last-saturday"
)

// Tipos de recordatorio
const (
	ReminderRSVP       = "rsvp"
	ReminderGameVoting = "game-voting"
	ReminderBoth       = "both"
)

// SettingsID es el _id del único documento de la colección settings.
const SettingsID = "global"

type Settings struct {
	ID                   string    `json:"-" bson:"_id"`
	RecurrenceRule       string    `json:"recurrenceRule" bson:"recurrenceRule"`
	DefaultTime          string    `json:"defaultTime" bson:"defaultTime"`
	NotificationsEnabled bool      `json:"notificationsEnabled" bson:"notificationsEnabled"`
	ReminderDays         int       `json:"reminderDays" bson:"reminderDays"`
	ReminderType         string    `json:"reminderType" bson:"reminderType"`
	UpdatedAt            time.Time `json:"updatedAt,omitempty" bson:"updatedAt"`
	UpdatedBy            string    `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
}

// Payload para actualización parcial de settings
type SettingsUpdateRequest struct {
	RecurrenceRule       *string `json:"recurrenceRule,omitempty"`
	DefaultTime          *string `json:"defaultTime,omitempty"`
	NotificationsEnabled *bool   `json:"notificationsEnabled,omitempty"`
	ReminderDays         *int    `json:"reminderDays,omitempty"`
	ReminderType         *string `json:"reminderType,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		ID:                   SettingsID,
		RecurrenceRule:       RecurrenceFirstWednesday,
		DefaultTime:          "19:30",
		NotificationsEnabled: true,
		ReminderDays:         3,
		ReminderType:         ReminderRSVP,
	}
}
