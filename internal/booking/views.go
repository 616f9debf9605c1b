package booking

import (
	"fmt"
	"time"

	"github.com/BTreeMap/HallBook/internal/availability"
	"github.com/BTreeMap/HallBook/internal/calendar"
	"github.com/BTreeMap/HallBook/internal/models"
)

// ViewFor renders the view of the step s is in. Forward transitions and Back
// both go through here, so returning to a step reproduces its view exactly.
// It returns nil for states without a view of their own (Idle, Completed).
func ViewFor(s models.Session, resources []models.Resource, today time.Time) models.View {
	switch s.State {
	case models.StateSelectingResource:
		return ResourcePickerView(resources)
	case models.StateSelectingDay:
		return calendar.BuildMonth(s.ViewMonthOf(), s.Busy, today)
	case models.StateSelectingStart:
		return StartPickerView(s.SelectedDay, s.Busy)
	case models.StateSelectingEnd:
		return EndPickerView(s.SelectedDay, s.StartHour, s.Busy)
	}
	return nil
}

// ResourcePickerView lists every hall in catalog order.
func ResourcePickerView(resources []models.Resource) models.ResourcePicker {
	options := make([]models.Option, 0, len(resources))
	for _, r := range resources {
		options = append(options, models.Option{Label: r.Name, Token: r.Token()})
	}
	return models.ResourcePicker{Options: options}
}

// StartPickerView offers hours OpeningHour..ClosingHour-1 of day.
func StartPickerView(day time.Time, busy []models.BusyInterval) models.HourPicker {
	return models.HourPicker{
		Phase: models.HourPhaseStart,
		Day:   models.DayOf(day),
		Hours: hourButtons(availability.StartHours(day, busy), models.StartToken),
	}
}

// EndPickerView offers end hours after start up to ClosingHour.
func EndPickerView(day time.Time, start int, busy []models.BusyInterval) models.HourPicker {
	return models.HourPicker{
		Phase: models.HourPhaseEnd,
		Day:   models.DayOf(day),
		Hours: hourButtons(availability.EndHours(day, start, busy), models.EndToken),
	}
}

func hourButtons(hours []availability.HourStatus, token func(int) string) []models.HourButton {
	buttons := make([]models.HourButton, 0, len(hours))
	for _, h := range hours {
		b := models.HourButton{Label: HourLabel(h.Hour), Hour: h.Hour, Selectable: h.Free}
		if h.Free {
			b.Token = token(h.Hour)
		}
		buttons = append(buttons, b)
	}
	return buttons
}

// HourLabel formats an hour as "HH:00".
func HourLabel(h int) string {
	return fmt.Sprintf("%02d:00", h)
}
