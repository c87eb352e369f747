package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var moscow = time.FixedZone("MSK", 3*60*60)

func testResolver() *Resolver {
	return NewResolver(time.Date(2024, time.September, 2, 0, 0, 0, 0, moscow), 1, moscow)
}

func TestWeekIndex(t *testing.T) {
	r := testResolver()

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"term start", time.Date(2024, time.September, 2, 0, 0, 0, 0, moscow), 1},
		{"end of first week", time.Date(2024, time.September, 8, 23, 59, 0, 0, moscow), 1},
		{"second week", time.Date(2024, time.September, 9, 0, 0, 0, 0, moscow), 2},
		{"day before start", time.Date(2024, time.September, 1, 12, 0, 0, 0, moscow), 0},
		{"two weeks before start", time.Date(2024, time.August, 19, 0, 0, 0, 0, moscow), -1},
		{"december", time.Date(2024, time.December, 25, 10, 0, 0, 0, moscow), 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.WeekIndex(tt.at))
		})
	}
}

func TestWeekIndexAdvancesByOneEverySevenDays(t *testing.T) {
	r := testResolver()
	start := time.Date(2023, time.January, 1, 7, 30, 0, 0, moscow)
	for i := 0; i < 3*365; i++ {
		d := start.Add(time.Duration(i) * 24 * time.Hour)
		require.Equal(t, r.WeekIndex(d)+1, r.WeekIndex(d.Add(7*24*time.Hour)), "date %s", d)
	}
}

func TestWeekIndexIsMonotonic(t *testing.T) {
	r := testResolver()
	prev := r.WeekIndex(time.Date(2024, time.January, 1, 0, 0, 0, 0, moscow))
	for h := 1; h < 24*400; h += 5 {
		cur := r.WeekIndex(time.Date(2024, time.January, 1, 0, 0, 0, 0, moscow).Add(time.Duration(h) * time.Hour))
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestWeekBounds(t *testing.T) {
	r := testResolver()
	monday, sunday := r.WeekBounds(time.Date(2026, time.October, 15, 14, 0, 0, 0, moscow))
	assert.Equal(t, time.Date(2026, time.October, 12, 0, 0, 0, 0, moscow), monday)
	assert.Equal(t, time.Date(2026, time.October, 18, 0, 0, 0, 0, moscow), sunday)

	monday, _ = r.WeekBounds(time.Date(2026, time.October, 18, 23, 0, 0, 0, moscow))
	assert.Equal(t, time.Date(2026, time.October, 12, 0, 0, 0, 0, moscow), monday)
}

func TestMonthGrid(t *testing.T) {
	for year := 2023; year <= 2028; year++ {
		for month := time.January; month <= time.December; month++ {
			grid := MonthGrid(year, month)
			days := DaysIn(year, month)
			offset := (int(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()) + 6) % 7

			require.Len(t, grid, (days+offset+6)/7, "%d-%02d", year, month)

			seen := make(map[int]int)
			for _, row := range grid {
				require.Len(t, row, 7)
				for col, day := range row {
					if day == 0 {
						continue
					}
					seen[day]++
					wd := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Weekday()
					assert.Equal(t, (int(wd)+6)%7, col, "%d-%02d-%02d", year, month, day)
				}
			}
			require.Len(t, seen, days)
			for day := 1; day <= days; day++ {
				assert.Equal(t, 1, seen[day])
			}
		}
	}
}

func TestMonthGridSeptember2024(t *testing.T) {
	// September 1, 2024 is a Sunday.
	grid := MonthGrid(2024, time.September)
	require.Len(t, grid, 6)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 1}, grid[0])
	assert.Equal(t, []int{30, 0, 0, 0, 0, 0, 0}, grid[5])
}

func TestShiftMonth(t *testing.T) {
	tests := []struct {
		name      string
		year      int
		month     time.Month
		delta     int
		wantYear  int
		wantMonth time.Month
	}{
		{"january back", 2025, time.January, -1, 2024, time.December},
		{"december forward", 2024, time.December, 1, 2025, time.January},
		{"same year", 2024, time.May, 1, 2024, time.June},
		{"many back", 2024, time.March, -15, 2022, time.December},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, m := ShiftMonth(tt.year, tt.month, tt.delta)
			assert.Equal(t, tt.wantYear, y)
			assert.Equal(t, tt.wantMonth, m)
		})
	}
}

func TestParseDate(t *testing.T) {
	r := testResolver()
	now := time.Date(2026, time.October, 15, 12, 0, 0, 0, moscow)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "20.10.2026", want: time.Date(2026, time.October, 20, 0, 0, 0, 0, moscow)},
		{in: " 1.9.2025 ", want: time.Date(2025, time.September, 1, 0, 0, 0, 0, moscow)},
		{in: "2026-11-03", want: time.Date(2026, time.November, 3, 0, 0, 0, 0, moscow)},
		{in: "05.12", want: time.Date(2026, time.December, 5, 0, 0, 0, 0, moscow)},
		{in: "завтра", wantErr: true},
		{in: "32.01.2026", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := r.ParseDate(tt.in, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Декабрь", MonthName(time.December))
	assert.Equal(t, "понедельник", WeekdayName(time.Monday))
}
