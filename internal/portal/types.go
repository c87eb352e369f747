package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kgeu-bot/internal/models"
)

type authPayload struct {
	Token    string `json:"token"`
	UserData struct {
		LastName   string `json:"LastName"`
		FirstName  string `json:"FirstName"`
		ParentName string `json:"ParentName"`
		EMail      string `json:"EMail"`
		Position   string `json:"Position"`
	} `json:"userData"`
}

type named struct {
	Name string `json:"name"`
}

type scheduleItem struct {
	Date       string `json:"date"`
	TimeStart  string `json:"timeStart"`
	TimeEnd    string `json:"timeEnd"`
	Auditory   string `json:"auiditory"`
	Discipline *named `json:"discip"`
	Type       *named `json:"type"`
	Teacher    *named `json:"teacher"`
}

type schedulePayload struct {
	Schedules []json.RawMessage `json:"schedules"`
}

type brsPayload struct {
	BRS []struct {
		Discipline string `json:"discip"`
		Points     []struct {
			Point float64 `json:"point"`
		} `json:"points"`
		AddPoints []float64 `json:"addPoints"`
	} `json:"brs"`
}

type recordPayload struct {
	Semester flexString `json:"semestr"`
	Record   []struct {
		Discipline string     `json:"discip"`
		Mark       flexString `json:"mark"`
		Result     flexString `json:"result"`
	} `json:"record"`
}

// flexString accepts JSON strings, numbers and null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = flexString(n.String())
	}
	return nil
}

func (i scheduleItem) toEntry() (models.ScheduleEntry, error) {
	var missing []string
	if i.Discipline == nil {
		missing = append(missing, "discip")
	}
	if i.Type == nil {
		missing = append(missing, "type")
	}
	if i.Teacher == nil {
		missing = append(missing, "teacher")
	}
	if len(missing) > 0 {
		return models.ScheduleEntry{}, fmt.Errorf("%w: missing %s", ErrMalformedEntry, strings.Join(missing, ", "))
	}

	date, err := parseEntryDate(i.Date)
	if err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}

	return models.ScheduleEntry{
		Date:      date,
		TimeStart: i.TimeStart,
		TimeEnd:   i.TimeEnd,
		Subject:   i.Discipline.Name,
		Kind:      i.Type.Name,
		Room:      i.Auditory,
		Teacher:   i.Teacher.Name,
	}, nil
}

func parseEntryDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

func (p brsPayload) toReport(semester int) *models.GradeReport {
	report := &models.GradeReport{Semester: semester}
	for _, s := range p.BRS {
		subject := models.SubjectPoints{Subject: s.Discipline, AddPoints: s.AddPoints}
		for _, pt := range s.Points {
			subject.Points = append(subject.Points, pt.Point)
		}
		report.Subjects = append(report.Subjects, subject)
	}
	return report
}

func (p recordPayload) toTranscript(semester int) *models.Transcript {
	t := &models.Transcript{Semester: semester}
	if n, err := strconv.Atoi(string(p.Semester)); err == nil {
		t.Semester = n
	}
	for _, r := range p.Record {
		t.Records = append(t.Records, models.TranscriptRecord{
			Subject: r.Discipline,
			Mark:    string(r.Mark),
			Result:  string(r.Result),
		})
	}
	return t
}
