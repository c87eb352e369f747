package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"kgeu-bot/internal/models"
)

// FormatGrades renders a BRS report.
func FormatGrades(r *models.GradeReport) string {
	var b strings.Builder
	if r.Semester > 0 {
		fmt.Fprintf(&b, "Баллы БРС за %d семестр:\n\n", r.Semester)
	} else {
		b.WriteString("Баллы текущего семестра:\n\n")
	}
	if len(r.Subjects) == 0 {
		b.WriteString("Нет данных.")
		return b.String()
	}
	for _, s := range r.Subjects {
		fmt.Fprintf(&b, "%s: %s баллов\n", s.Subject, strconv.FormatFloat(s.Total(), 'f', -1, 64))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTranscript renders a record book page.
func FormatTranscript(t *models.Transcript) string {
	var b strings.Builder
	if t.Semester > 0 {
		fmt.Fprintf(&b, "Зачетная книжка (семестр %d):\n\n", t.Semester)
	} else {
		b.WriteString("Зачетная книжка:\n\n")
	}
	if len(t.Records) == 0 {
		b.WriteString("Нет данных.")
		return b.String()
	}
	for _, r := range t.Records {
		if r.Mark != "" {
			fmt.Fprintf(&b, "%s: %s баллов, %s\n", r.Subject, r.Mark, r.Result)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", r.Subject, r.Result)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
