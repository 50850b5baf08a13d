package utils

import (
	"net/url"
	"strconv"
	"time"

	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/types"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

func ParseFilterFromQuery(q url.Values) types.Filter {
	return types.Filter{
		Search: q.Get("search"),
		Limit:  parseLimit(q.Get("limit")),
		Offset: parseOffset(q.Get("offset")),
	}
}

// ParseDateRangeFromQuery читает from/to в формате YYYY-MM-DD; границы
// расширяются до начала и конца календарного дня.
func ParseDateRangeFromQuery(q url.Values) (types.DateRange, error) {
	var r types.DateRange
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return r, apperrors.NewValidationError("неверный формат даты from, ожидается YYYY-MM-DD")
		}
		r.From = ToPtr(DayStart(parsed))
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return r, apperrors.NewValidationError("неверный формат даты to, ожидается YYYY-MM-DD")
		}
		r.To = ToPtr(DayEnd(parsed))
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return r, apperrors.NewValidationError("период задан неверно: to раньше from")
	}
	return r, nil
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func parseOffset(raw string) int {
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}
