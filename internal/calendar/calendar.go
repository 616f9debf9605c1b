// Package calendar builds month grid views bounded by the booking navigation window.
package calendar

import (
	"strconv"
	"time"

	"github.com/BTreeMap/HallBook/internal/availability"
	"github.com/BTreeMap/HallBook/internal/models"
)

// DaysPerWeek is the grid width. Weeks start on Monday.
const DaysPerWeek = 7

// Window returns the browsable months for today: the month containing today
// and the next calendar month.
func Window(today time.Time) (first, last models.YearMonth) {
	first = models.MonthOf(today)
	return first, first.Next()
}

// InWindow reports whether ym is browsable on today.
func InWindow(ym models.YearMonth, today time.Time) bool {
	first, last := Window(today)
	return !ym.Before(first) && !ym.After(last)
}

// InWindowDay reports whether day lies in a browsable month.
func InWindowDay(day time.Time, today time.Time) bool {
	return InWindow(models.MonthOf(day), today)
}

// CanPrev reports whether "previous" navigation is offered from ym.
func CanPrev(ym models.YearMonth, today time.Time) bool {
	first, _ := Window(today)
	return ym.After(first)
}

// CanNext reports whether "next" navigation is offered from ym.
func CanNext(ym models.YearMonth, today time.Time) bool {
	_, last := Window(today)
	return ym.Before(last)
}

// Navigate moves ym one month in dir. ok is false, and ym is returned
// unchanged, when the move would leave the window.
func Navigate(ym models.YearMonth, dir models.Direction, today time.Time) (models.YearMonth, bool) {
	switch dir {
	case models.DirectionPrev:
		if CanPrev(ym, today) {
			return ym.Prev(), true
		}
	case models.DirectionNext:
		if CanNext(ym, today) {
			return ym.Next(), true
		}
	}
	return ym, false
}

// Build renders the grid for year/month against busy and today.
func Build(year int, month time.Month, busy []models.BusyInterval, today time.Time) models.CalendarView {
	ym := models.YearMonth{Year: year, Month: month}
	view := models.CalendarView{
		Year:    ym.Year,
		Month:   ym.Month,
		NavPrev: CanPrev(ym, today),
		NavNext: CanNext(ym, today),
	}

	// Monday = column 0.
	lead := (int(ym.First().Weekday()) + DaysPerWeek - 1) % DaysPerWeek
	row := make([]models.DayCell, 0, DaysPerWeek)
	for i := 0; i < lead; i++ {
		row = append(row, models.DayCell{})
	}

	for d := 1; d <= ym.Days(); d++ {
		date := models.Date(ym.Year, ym.Month, d)
		row = append(row, models.DayCell{
			Label:      strconv.Itoa(d),
			Day:        d,
			Selectable: availability.IsDaySelectable(date, busy, today),
			Token:      models.DayToken(date),
		})
		if len(row) == DaysPerWeek {
			view.Cells = append(view.Cells, row)
			row = make([]models.DayCell, 0, DaysPerWeek)
		}
	}

	if len(row) > 0 {
		for len(row) < DaysPerWeek {
			row = append(row, models.DayCell{})
		}
		view.Cells = append(view.Cells, row)
	}
	return view
}

// BuildMonth is Build for a YearMonth.
func BuildMonth(ym models.YearMonth, busy []models.BusyInterval, today time.Time) models.CalendarView {
	return Build(ym.Year, ym.Month, busy, today)
}
