package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Profile is the portal's view of the student, cached at login.
type Profile struct {
	LastName   string
	FirstName  string
	ParentName string
	Email      string
	Position   string
}

// FullName returns "Last First Parent" without empty parts.
func (p Profile) FullName() string {
	return strings.Join(strings.Fields(p.LastName+" "+p.FirstName+" "+p.ParentName), " ")
}

// ShortName returns "Last F.P.".
func (p Profile) ShortName() string {
	name := p.LastName
	if r, _ := utf8.DecodeRuneInString(p.FirstName); r != utf8.RuneError {
		name += " " + string(r) + "."
	}
	if r, _ := utf8.DecodeRuneInString(p.ParentName); r != utf8.RuneError {
		name += string(r) + "."
	}
	return strings.TrimSpace(name)
}

// UserRecord is the persisted session of one chat user.
// Token is empty when no token is cached.
type UserRecord struct {
	UserID               int64
	Login                string
	Token                string
	Profile              Profile
	SealedPassword       string
	NotificationsEnabled bool
}

func (r UserRecord) HasToken() bool {
	return r.Token != ""
}

// ScheduleEntry is one class session as returned by the portal.
type ScheduleEntry struct {
	Date      time.Time
	TimeStart string
	TimeEnd   string
	Subject   string
	Kind      string
	Room      string
	Teacher   string
}

// Day returns the entry's calendar date in UTC as YYYY-MM-DD.
func (e ScheduleEntry) Day() string {
	return e.Date.UTC().Format("2006-01-02")
}

// Title is the "subject (kind)" label used in exports.
func (e ScheduleEntry) Title() string {
	if e.Kind == "" {
		return e.Subject
	}
	return fmt.Sprintf("%s (%s)", e.Subject, e.Kind)
}

// GradeReport is the BRS (rating system) report for one semester.
type GradeReport struct {
	Semester int
	Subjects []SubjectPoints
}

type SubjectPoints struct {
	Subject   string
	Points    []float64
	AddPoints []float64
}

// Total sums regular and additional points.
func (s SubjectPoints) Total() float64 {
	var total float64
	for _, p := range s.Points {
		total += p
	}
	for _, p := range s.AddPoints {
		total += p
	}
	return total
}

// Transcript is the record book for one semester.
type Transcript struct {
	Semester int
	Records  []TranscriptRecord
}

type TranscriptRecord struct {
	Subject string
	Mark    string
	Result  string
}
