package calendar

import "time"

// MonthGrid lays out the days of a month in Monday-first rows of seven.
// Cells outside the month are 0.
func MonthGrid(year int, month time.Month) [][]int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := DaysIn(year, month)
	offset := (int(first.Weekday()) + 6) % 7

	rows := make([][]int, 0, (days+offset+6)/7)
	row := make([]int, 7)
	for day := 1; day <= days; day++ {
		col := (offset + day - 1) % 7
		row[col] = day
		if col == 6 || day == days {
			rows = append(rows, row)
			row = make([]int, 7)
		}
	}
	return rows
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ShiftMonth moves delta months from (year, month), wrapping year boundaries.
func ShiftMonth(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

func MonthName(m time.Month) string {
	return monthNames[m-1]
}

// WeekdayHeader is the Monday-first header row of the picker.
var WeekdayHeader = [7]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}
