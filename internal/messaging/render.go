package messaging

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/HallBook/internal/models"
)

// Layout of the rendered text.
const (
	HoursPerRow    = 6
	blockedMarker  = "x"
	textDateLayout = "02.01.2006"
)

// Render formats a booking Result as a chat message: the rejection notice,
// if any, followed by the view.
func Render(result models.Result) string {
	var parts []string
	if result.Rejection != nil && result.Rejection.Notice != "" {
		parts = append(parts, result.Rejection.Notice)
	}
	if result.View != nil {
		parts = append(parts, RenderView(result.View))
	}
	return strings.Join(parts, "\n\n")
}

// RenderView formats a single view descriptor.
func RenderView(view models.View) string {
	switch v := view.(type) {
	case models.ResourcePicker:
		return renderResourcePicker(v)
	case models.CalendarView:
		return renderCalendar(v)
	case models.HourPicker:
		return renderHourPicker(v)
	case models.Confirmation:
		return RenderConfirmation(v)
	}
	return ""
}

func renderResourcePicker(v models.ResourcePicker) string {
	var b strings.Builder
	b.WriteString("Choose a hall:")
	for _, o := range v.Options {
		fmt.Fprintf(&b, "\n%s - %s", strings.TrimPrefix(o.Token, models.TokenResourcePrefix), o.Label)
	}
	return b.String()
}

// weekdayHeader lines up with cells printed as "%-3s" joined by one space.
const weekdayHeader = "Mo  Tu  We  Th  Fr  Sa  Su"

func renderCalendar(v models.CalendarView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n%s", v.Month, v.Year, weekdayHeader)
	for _, row := range v.Cells {
		b.WriteByte('\n')
		cells := make([]string, len(row))
		for i, c := range row {
			label := c.Label
			if c.Day != 0 && !c.Selectable {
				label += blockedMarker
			}
			cells[i] = fmt.Sprintf("%-3s", label)
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, " "), " "))
	}

	b.WriteString("\n\nReply with a day number (" + blockedMarker + " = no free hours)")
	if v.NavPrev {
		b.WriteString(", < for the previous month")
	}
	if v.NavNext {
		b.WriteString(", > for the next month")
	}
	b.WriteString(" or 0 to go back.")
	return b.String()
}

func renderHourPicker(v models.HourPicker) string {
	var b strings.Builder
	if v.Phase == models.HourPhaseStart {
		fmt.Fprintf(&b, "Choose a start time on %s:", v.Day.Format(textDateLayout))
	} else {
		fmt.Fprintf(&b, "Choose an end time on %s:", v.Day.Format(textDateLayout))
	}
	for start := 0; start < len(v.Hours); start += HoursPerRow {
		end := min(start+HoursPerRow, len(v.Hours))
		cells := make([]string, 0, HoursPerRow)
		for _, h := range v.Hours[start:end] {
			label := h.Label
			if !h.Selectable {
				label += blockedMarker
			}
			cells = append(cells, fmt.Sprintf("%-6s", label))
		}
		b.WriteByte('\n')
		b.WriteString(strings.TrimRight(strings.Join(cells, " "), " "))
	}
	b.WriteString("\n\nReply with an hour (" + blockedMarker + " = busy) or 0 to go back.")
	return b.String()
}

// RenderConfirmation formats the final booking message.
func RenderConfirmation(c models.Confirmation) string {
	return fmt.Sprintf("Booked: hall %s from %02d:00 to %02d:00 on %s.",
		c.ResourceID, c.StartHour, c.EndHour, c.Date.Format(textDateLayout))
}
