package service

import (
	"testing"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format("2006-01-02 15:04")
	}
	return out
}

func TestNextOccurrences(t *testing.T) {
	from := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := map[string][]string{
		models.RecurrenceFirstWednesday: {"2024-06-05 19:30", "2024-07-03 19:30", "2024-08-07 19:30"},
		models.RecurrenceSecondFriday:   {"2024-06-14 19:30", "2024-07-12 19:30", "2024-08-09 19:30"},
		models.RecurrenceLastSaturday:   {"2024-06-29 19:30", "2024-07-27 19:30", "2024-08-31 19:30"},
		models.RecurrenceWeekly:         {"2024-06-05 19:30", "2024-06-12 19:30", "2024-06-19 19:30"},
		models.RecurrenceEveryTwoWeeks:  {"2024-06-05 19:30", "2024-06-19 19:30", "2024-07-03 19:30"},
	}
	for rule, want := range cases {
		t.Run(rule, func(t *testing.T) {
			got, err := NextOccurrences(rule, "19:30", from, 3)
			require.NoError(t, err)
			assert.Equal(t, want, days(got))
		})
	}
}

func TestNextOccurrencesStrictlyAfter(t *testing.T) {
	from := time.Date(2024, 6, 5, 19, 30, 0, 0, time.UTC)

	got, err := NextOccurrences(models.RecurrenceFirstWednesday, "19:30", from, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-07-03 19:30"}, days(got))

	got, err = NextOccurrences(models.RecurrenceWeekly, "19:30", from, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-12 19:30"}, days(got))

	// mismo día pero más tarde que from
	got, err = NextOccurrences(models.RecurrenceWeekly, "21:00", from, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-05 21:00"}, days(got))
}

func TestNextOccurrencesKeepsLocation(t *testing.T) {
	lima, err := time.LoadLocation("America/Lima")
	require.NoError(t, err)
	from := time.Date(2024, 12, 20, 0, 0, 0, 0, lima)

	got, err := NextOccurrences(models.RecurrenceFirstWednesday, "20:00", from, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01 20:00", "2025-02-05 20:00"}, days(got))
	assert.Equal(t, lima, got[0].Location())
}

func TestNextOccurrencesErrors(t *testing.T) {
	_, err := NextOccurrences("monthly", "19:30", time.Now(), 1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = NextOccurrences(models.RecurrenceWeekly, "7pm", time.Now(), 1)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
