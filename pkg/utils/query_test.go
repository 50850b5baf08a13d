package utils

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterFromQuery(t *testing.T) {
	filter := ParseFilterFromQuery(url.Values{
		"search": {"Иванов"},
		"limit":  {"50"},
		"offset": {"10"},
	})
	assert.Equal(t, "Иванов", filter.Search)
	assert.Equal(t, 50, filter.Limit)
	assert.Equal(t, 10, filter.Offset)

	t.Run("значения по умолчанию", func(t *testing.T) {
		filter := ParseFilterFromQuery(url.Values{})
		assert.Equal(t, defaultLimit, filter.Limit)
		assert.Equal(t, 0, filter.Offset)
	})

	t.Run("лимит ограничен сверху", func(t *testing.T) {
		filter := ParseFilterFromQuery(url.Values{"limit": {"9999"}, "offset": {"-5"}})
		assert.Equal(t, maxLimit, filter.Limit)
		assert.Equal(t, 0, filter.Offset)
	})
}

func TestParseDateRangeFromQuery(t *testing.T) {
	r, err := ParseDateRangeFromQuery(url.Values{"from": {"2026-08-01"}, "to": {"2026-08-15"}})
	require.NoError(t, err)
	require.NotNil(t, r.From)
	require.NotNil(t, r.To)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *r.From)
	// Верхняя граница расширяется до конца дня.
	assert.Equal(t, 23, r.To.Hour())

	t.Run("кривой формат", func(t *testing.T) {
		_, err := ParseDateRangeFromQuery(url.Values{"from": {"01.08.2026"}})
		assert.Error(t, err)
	})

	t.Run("to раньше from", func(t *testing.T) {
		_, err := ParseDateRangeFromQuery(url.Values{"from": {"2026-08-15"}, "to": {"2026-08-01"}})
		assert.Error(t, err)
	})
}

func TestTimeHelpers(t *testing.T) {
	moment := time.Date(2026, 8, 15, 17, 42, 11, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), DayStart(moment))
	assert.Equal(t, 23, DayEnd(moment).Hour())

	assert.Equal(t, 14, DaysBetween(time.Date(2026, 8, 1, 23, 0, 0, 0, time.UTC), moment))
	assert.Equal(t, 0, DaysBetween(moment, moment.Add(-time.Hour)))

	assert.True(t, SameDay(moment, DayStart(moment)))
	assert.False(t, SameDay(moment, moment.AddDate(0, 0, 1)))
}
