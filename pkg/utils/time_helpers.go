package utils

import "time"

// DayStart обнуляет время, оставляя календарную дату.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayEnd - последний момент календарного дня.
func DayEnd(t time.Time) time.Time {
	return DayStart(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DaysBetween считает полные календарные дни между двумя моментами.
// Общий примитив финансового и операционного отчётов.
func DaysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(DayStart(to).Sub(DayStart(from)).Hours() / 24)
}

// SameDay сообщает, попадают ли два момента в один календарный день.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
