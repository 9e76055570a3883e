package service

import (
	"context"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/models"
)

type SettingsService struct {
	store SettingsStore
	loc   *time.Location
	now   func() time.Time
}

func NewSettingsService(store SettingsStore, loc *time.Location) *SettingsService {
	if loc == nil {
		loc = time.UTC
	}
	return &SettingsService{store: store, loc: loc, now: time.Now}
}

func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	cur, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		d := models.DefaultSettings()
		return &d, nil
	}
	return cur, nil
}

// Update valida y guarda los campos presentes en req.
func (s *SettingsService) Update(ctx context.Context, actor models.Identity, req models.SettingsUpdateRequest) (*models.Settings, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	next := *cur

	if req.RecurrenceRule != nil {
		if !validRecurrence(*req.RecurrenceRule) {
			return nil, apperr.Validation("invalid recurrenceRule %q", *req.RecurrenceRule)
		}
		next.RecurrenceRule = *req.RecurrenceRule
	}
	if req.DefaultTime != nil {
		if _, err := time.Parse("15:04", *req.DefaultTime); err != nil {
			return nil, apperr.Validation("defaultTime must be HH:MM")
		}
		next.DefaultTime = *req.DefaultTime
	}
	if req.NotificationsEnabled != nil {
		next.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.ReminderDays != nil {
		if *req.ReminderDays < 1 || *req.ReminderDays > 14 {
			return nil, apperr.Validation("reminderDays must be between 1 and 14")
		}
		next.ReminderDays = *req.ReminderDays
	}
	if req.ReminderType != nil {
		switch *req.ReminderType {
		case models.ReminderRSVP, models.ReminderGameVoting, models.ReminderBoth:
			next.ReminderType = *req.ReminderType
		default:
			return nil, apperr.Validation("invalid reminderType %q", *req.ReminderType)
		}
	}

	next.UpdatedAt = s.now().UTC()
	next.UpdatedBy = actor.UID
	if err := s.store.Save(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// NextDates calcula las próximas n fechas según la regla guardada, a la
// hora por defecto, posteriores a from.
func (s *SettingsService) NextDates(ctx context.Context, from time.Time, n int) ([]time.Time, error) {
	if n <= 0 || n > 52 {
		return nil, apperr.Validation("n must be between 1 and 52")
	}
	cur, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return NextOccurrences(cur.RecurrenceRule, cur.DefaultTime, from.In(s.loc), n)
}

func validRecurrence(rule string) bool {
	switch rule {
	case models.RecurrenceWeekly, models.RecurrenceEveryTwoWeeks,
		models.RecurrenceFirstWednesday, models.RecurrenceSecondFriday, models.RecurrenceLastSaturday:
		return true
	}
	return false
}
