package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2025-03-07")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), day)

	_, err = ParseDay("07/03/2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse day")
}

func TestFormatDayRoundTrip(t *testing.T) {
	day, err := ParseDay("2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", FormatDay(day))
	assert.Equal(t, "2024-12", MonthOf(day))
}

func TestWeekKey(t *testing.T) {
	// 2024-12-30 is a Monday belonging to ISO week 1 of 2025.
	day, err := ParseDay("2024-12-30")
	require.NoError(t, err)
	assert.Equal(t, "2025-W01", WeekKey(day))

	mid, err := ParseDay("2025-02-12")
	require.NoError(t, err)
	assert.Equal(t, "2025-W07", WeekKey(mid))
}
