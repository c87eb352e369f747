// Package calendar maps calendar dates onto the portal's academic week numbering
// and builds month grids for the date picker.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const week = 7 * 24 * time.Hour

var ErrInvalidDate = errors.New("invalid date")

// Resolver converts instants to academic week indices.
type Resolver struct {
	// TermStart is the instant week FirstWeek begins at.
	TermStart time.Time
	FirstWeek int
	Location  *time.Location
}

func NewResolver(termStart time.Time, firstWeek int, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{TermStart: termStart, FirstWeek: firstWeek, Location: loc}
}

// WeekIndex returns floor((t - TermStart) / 7 days) + FirstWeek.
// Instants before the term start give indices below FirstWeek.
func (r *Resolver) WeekIndex(t time.Time) int {
	diff := t.Sub(r.TermStart)
	n := diff / week
	if diff%week < 0 {
		n--
	}
	return int(n) + r.FirstWeek
}

// Day returns local midnight of t in the resolver's location.
func (r *Resolver) Day(t time.Time) time.Time {
	t = t.In(r.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.Location)
}

// WeekBounds returns Monday and Sunday (local midnights) of the week containing t.
func (r *Resolver) WeekBounds(t time.Time) (time.Time, time.Time) {
	day := r.Day(t)
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

// ParseDate reads a user-typed date: DD.MM.YYYY, DD.MM (year taken from now) or YYYY-MM-DD.
func (r *Resolver) ParseDate(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range []string{"02.01.2006", "2.1.2006", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, text, r.Location); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"02.01", "2.1"} {
		if t, err := time.ParseInLocation(layout, text, r.Location); err == nil {
			return time.Date(now.In(r.Location).Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.Location), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, text)
}

var weekdayNames = [...]string{
	"воскресенье", "понедельник", "вторник", "среда", "четверг", "пятница", "суббота",
}

// WeekdayName is the lower-case Russian weekday name.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}
