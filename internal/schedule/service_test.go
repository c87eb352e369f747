package schedule

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"kgeu-bot/internal/calendar"
	"kgeu-bot/internal/models"
	"kgeu-bot/internal/portal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var moscow = time.FixedZone("MSK", 3*60*60)

type fakeFetcher struct {
	mu     sync.Mutex
	weeks  map[int][]models.ScheduleEntry
	failed map[int]bool
	calls  []int
}

func (f *fakeFetcher) ScheduleWeek(_ context.Context, token string, week int) ([]models.ScheduleEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, week)
	if f.failed[week] {
		return nil, fmt.Errorf("%w: boom", portal.ErrRemoteUnavailable)
	}
	return f.weeks[week], nil
}

func entry(day, start, subject string) models.ScheduleEntry {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return models.ScheduleEntry{
		Date:      d,
		TimeStart: start + ":00",
		TimeEnd:   start[:2] + ":30:00",
		Subject:   subject,
		Kind:      "Лекция",
		Room:      "Б-204",
		Teacher:   "Петров П.П.",
	}
}

// Term starts on Monday 2024-09-02, so 2024-10-14..20 is week 7.
func newTestService(f *fakeFetcher, loc *time.Location, opts ...Option) *Service {
	r := calendar.NewResolver(time.Date(2024, time.September, 2, 0, 0, 0, 0, loc), 1, loc)
	return NewService(f, r, nil, opts...)
}

func TestForDay(t *testing.T) {
	f := &fakeFetcher{weeks: map[int][]models.ScheduleEntry{
		7: {
			entry("2024-10-14", "08:00", "Физика"),
			entry("2024-10-15", "08:00", "Химия"),
			entry("2024-10-14", "09:40", "Математика"),
		},
	}}
	s := newTestService(f, moscow)

	got := s.ForDay(context.Background(), "T1", time.Date(2024, time.October, 14, 0, 0, 0, 0, moscow))
	require.Len(t, got, 2)
	assert.Equal(t, "Физика", got[0].Subject)
	assert.Equal(t, "Математика", got[1].Subject)
	assert.Equal(t, []int{7}, f.calls)
}

func TestForDayNormalisesTimeOfDay(t *testing.T) {
	f := &fakeFetcher{weeks: map[int][]models.ScheduleEntry{
		7: {entry("2024-10-16", "08:00", "Физика")},
	}}
	s := newTestService(f, moscow)

	got := s.ForDay(context.Background(), "T1", time.Date(2024, time.October, 16, 18, 45, 0, 0, moscow))
	require.Len(t, got, 1)
}

func TestForDayShiftsByOneDay(t *testing.T) {
	// With a UTC clock the one-day shift is visible: the shifted date is the filter key.
	f := &fakeFetcher{weeks: map[int][]models.ScheduleEntry{
		7: {
			entry("2024-10-14", "08:00", "Физика"),
			entry("2024-10-15", "08:00", "Химия"),
		},
	}}
	s := newTestService(f, time.UTC)

	got := s.ForDay(context.Background(), "T1", time.Date(2024, time.October, 14, 0, 0, 0, 0, time.UTC))
	require.Len(t, got, 1)
	assert.Equal(t, "Химия", got[0].Subject)
}

func TestForDayEmptyWeek(t *testing.T) {
	f := &fakeFetcher{weeks: map[int][]models.ScheduleEntry{7: {}}}
	s := newTestService(f, moscow)

	got := s.ForDay(context.Background(), "T1", time.Date(2024, time.October, 14, 0, 0, 0, 0, moscow))
	assert.Empty(t, got)
	assert.Equal(t, NoSchedule, s.Format(got))
}

func TestForDayRemoteFailureIsEmpty(t *testing.T) {
	f := &fakeFetcher{failed: map[int]bool{7: true}}
	s := newTestService(f, moscow)

	got := s.ForDay(context.Background(), "T1", time.Date(2024, time.October, 14, 0, 0, 0, 0, moscow))
	assert.Empty(t, got)
}

func TestForRange(t *testing.T) {
	f := &fakeFetcher{weeks: map[int][]models.ScheduleEntry{
		7: {
			entry("2024-10-18", "08:00", "Пятница"),
			entry("2024-10-14", "08:00", "Понедельник"),
			entry("2024-10-16", "08:00", "Среда"),
		},
	}}
	s := newTestService(f, moscow)

	got := s.ForRange(context.Background(), "T1",
		time.Date(2024, time.October, 14, 0, 0, 0, 0, moscow),
		time.Date(2024, time.October, 18, 0, 0, 0, 0, moscow))

	require.Len(t, got, 3)
	assert.Equal(t, "Понедельник", got[0].Subject)
	assert.Equal(t, "Среда", got[1].Subject)
	assert.Equal(t, "Пятница", got[2].Subject)
	assert.Len(t, f.calls, 5)
}

func TestForWeek(t *testing.T) {
	f := &fakeFetcher{weeks: map[int][]models.ScheduleEntry{
		7: {entry("2024-10-14", "08:00", "Физика"), entry("2024-10-19", "08:00", "Суббота")},
	}}
	s := newTestService(f, moscow)

	got := s.ForWeek(context.Background(), "T1", time.Date(2024, time.October, 17, 13, 0, 0, 0, moscow))
	require.Len(t, got, 2)
	assert.Equal(t, "Физика", got[0].Subject)
	assert.Equal(t, "Суббота", got[1].Subject)
}

func TestExportCSV(t *testing.T) {
	f := &fakeFetcher{
		weeks: map[int][]models.ScheduleEntry{
			1:  {entry("2024-09-02", "08:00", "Физика")},
			2:  {entry("2024-09-09", "08:00", "Право, история"), entry("2024-09-10", "10:00", "Химия")},
			30: {entry("2025-03-24", "08:00", "Экономика")},
		},
		failed: map[int]bool{5: true},
	}
	s := newTestService(f, moscow, WithWorkers(3))

	data, err := s.ExportCSV(context.Background(), "T1")
	require.NoError(t, err)

	sort.Ints(f.calls)
	require.Len(t, f.calls, 30)
	assert.Equal(t, 1, f.calls[0])
	assert.Equal(t, 30, f.calls[29])

	rows, err := ReadCSV(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Физика (Лекция)", rows[0].Subject)
	assert.Equal(t, "Право, история (Лекция)", rows[1].Subject)
	assert.Equal(t, "Химия (Лекция)", rows[2].Subject)
	assert.Equal(t, "Экономика (Лекция)", rows[3].Subject)
	assert.Contains(t, string(data), `"Право, история (Лекция)"`)
	assert.True(t, bytes.HasPrefix(data, []byte("Subject,Start Date,Start Time,End Date,End Time,Location,Description\n")))
}

func TestExportCSVLastWeek(t *testing.T) {
	f := &fakeFetcher{}
	s := newTestService(f, moscow, WithLastWeek(4))

	_, err := s.ExportCSV(context.Background(), "T1")
	require.NoError(t, err)
	assert.Len(t, f.calls, 4)
}

func TestCSVRoundTrip(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry("2024-09-02", "08:00", "Физика"),
		{
			Date:      time.Date(2024, time.September, 3, 0, 0, 0, 0, time.UTC),
			TimeStart: "09:40:00",
			TimeEnd:   "11:10:00",
			Subject:   `Теория "игр", часть 2`,
			Kind:      "Практика",
			Room:      "А-1, корпус 2",
			Teacher:   "Ким, К.К.",
		},
	}

	data, err := WriteCSV(entries)
	require.NoError(t, err)

	rows, err := ReadCSV(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, len(entries))
	for i, e := range entries {
		assert.Equal(t, rowFor(e), rows[i])
		assert.Equal(t, e.Title(), rows[i].Subject)
		assert.Equal(t, e.Day(), rows[i].StartDate)
		assert.Equal(t, e.TimeStart, rows[i].StartTime)
		assert.Equal(t, e.TimeEnd, rows[i].EndTime)
		assert.Equal(t, e.Room, rows[i].Location)
		assert.Equal(t, e.Teacher, rows[i].Teacher)
	}
}

func TestFormat(t *testing.T) {
	got := Format([]models.ScheduleEntry{entry("2024-10-14", "08:00", "Физика")}, moscow)
	want := "14.10.2024 (понедельник)\n" +
		"Лекция Физика\n" +
		"Б-204 / 08:00 - 08:30\n" +
		"Петров П.П.\n" +
		divider
	assert.Equal(t, want, got)

	assert.Equal(t, NoSchedule, Format(nil, moscow))
}

func TestFormatRecords(t *testing.T) {
	grades := FormatGrades(&models.GradeReport{Semester: 2, Subjects: []models.SubjectPoints{
		{Subject: "Физика", Points: []float64{10, 12.5}, AddPoints: []float64{3}},
	}})
	assert.Equal(t, "Баллы БРС за 2 семестр:\n\nФизика: 25.5 баллов", grades)

	transcript := FormatTranscript(&models.Transcript{Semester: 4, Records: []models.TranscriptRecord{
		{Subject: "Физика", Mark: "85", Result: "отлично"},
		{Subject: "Физкультура", Result: "зачтено"},
	}})
	assert.Equal(t, "Зачетная книжка (семестр 4):\n\nФизика: 85 баллов, отлично\nФизкультура: зачтено", transcript)

	assert.Contains(t, FormatGrades(&models.GradeReport{}), "Нет данных.")
}
