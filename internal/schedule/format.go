package schedule

import (
	"fmt"
	"strings"
	"time"

	"kgeu-bot/internal/calendar"
	"kgeu-bot/internal/models"
)

// NoSchedule is rendered instead of an empty list.
const NoSchedule = "Расписания нет."

const divider = "---------------------------------------"

// Format renders entries as a flat chronological list.
func Format(entries []models.ScheduleEntry, loc *time.Location) string {
	if len(entries) == 0 {
		return NoSchedule
	}
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		d := e.Date.In(loc)
		fmt.Fprintf(&b, "%s (%s)\n", d.Format("02.01.2006"), calendar.WeekdayName(d.Weekday()))
		fmt.Fprintf(&b, "%s\n", strings.TrimSpace(e.Kind+" "+e.Subject))
		fmt.Fprintf(&b, "%s / %s - %s\n", e.Room, clock(e.TimeStart), clock(e.TimeEnd))
		fmt.Fprintf(&b, "%s\n%s", e.Teacher, divider)
	}
	return b.String()
}

// Format renders entries in the service's timezone.
func (s *Service) Format(entries []models.ScheduleEntry) string {
	return Format(entries, s.resolver.Location)
}

// clock cuts "08:00:00" down to "08:00".
func clock(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}
