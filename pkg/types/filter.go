package types

import "time"

// Filter represents query parameters for filtering and pagination.
type Filter struct {
	Search         string                 `json:"search,omitempty"`
	Sort           map[string]string      `json:"sort,omitempty"`
	Filter         map[string]interface{} `json:"filter,omitempty"`
	Limit          int                    `json:"limit"`
	Offset         int                    `json:"offset"`
	Page           int                    `json:"page"`
	WithPagination bool                   `json:"with_pagination"`
}

// Pagination represents pagination metadata.
type Pagination struct {
	TotalCount uint64 `json:"total_count"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"total_pages"`
}

// DateRange - период анализа для финансовых и операционных отчётов.
// Пустой период означает "текущий календарный месяц".
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// IsZero сообщает, задан ли период явно.
func (r DateRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

// OrMonth возвращает явный период, а если он не задан -
// границы календарного месяца, в который попадает now.
func (r DateRange) OrMonth(now time.Time) (time.Time, time.Time) {
	if r.From != nil && r.To != nil {
		return *r.From, *r.To
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)
	if r.From != nil {
		return *r.From, monthEnd
	}
	if r.To != nil {
		return monthStart, *r.To
	}
	return monthStart, monthEnd
}
