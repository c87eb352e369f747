package schedule

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"kgeu-bot/internal/models"

	"golang.org/x/sync/errgroup"
)

var csvHeader = []string{"Subject", "Start Date", "Start Time", "End Date", "End Time", "Location", "Description"}

// ExportRow is one line of the calendar export.
type ExportRow struct {
	Subject   string
	StartDate string
	StartTime string
	EndDate   string
	EndTime   string
	Location  string
	Teacher   string
}

func rowFor(e models.ScheduleEntry) ExportRow {
	day := e.Day()
	return ExportRow{
		Subject:   e.Title(),
		StartDate: day,
		StartTime: e.TimeStart,
		EndDate:   day,
		EndTime:   e.TimeEnd,
		Location:  e.Room,
		Teacher:   e.Teacher,
	}
}

// ExportCSV fetches every week from the first academic week to the last one
// and renders them as a Google Calendar import file. Weeks that fail to load
// are left out.
func (s *Service) ExportCSV(ctx context.Context, token string) ([]byte, error) {
	first := s.resolver.FirstWeek
	if s.lastWeek < first {
		return WriteCSV(nil)
	}

	weeks := make([][]models.ScheduleEntry, s.lastWeek-first+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range weeks {
		i := i
		g.Go(func() error {
			weeks[i] = s.fetchWeek(gctx, token, first+i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("export interrupted: %w", err)
	}

	var entries []models.ScheduleEntry
	for _, w := range weeks {
		entries = append(entries, w...)
	}
	return WriteCSV(entries)
}

// WriteCSV serialises entries in order, quoting fields where needed.
func WriteCSV(entries []models.ScheduleEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		r := rowFor(e)
		if err := w.Write([]string{r.Subject, r.StartDate, r.StartTime, r.EndDate, r.EndTime, r.Location, r.Teacher}); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadCSV parses an export produced by WriteCSV.
func ReadCSV(r io.Reader) ([]ExportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if header[0] != csvHeader[0] {
		return nil, fmt.Errorf("unexpected csv header %q", header)
	}

	var rows []ExportRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rows = append(rows, ExportRow{
			Subject:   rec[0],
			StartDate: rec[1],
			StartTime: rec[2],
			EndDate:   rec[3],
			EndTime:   rec[4],
			Location:  rec[5],
			Teacher:   rec[6],
		})
	}
	return rows, nil
}
