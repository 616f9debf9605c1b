package models

import "time"

// ViewKind identifies the descriptor a presentation layer should render.
type ViewKind string

const (
	ViewResourcePicker ViewKind = "resource_picker"
	ViewCalendar       ViewKind = "calendar"
	ViewHourPicker     ViewKind = "hour_picker"
	ViewConfirmation   ViewKind = "confirmation"
)

// View is an outbound view descriptor. Implementations are plain values so
// two renderings of the same state compare equal with reflect.DeepEqual.
type View interface {
	ViewKind() ViewKind
}

// Option is a selectable entry in a ResourcePicker.
type Option struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// ResourcePicker lists the halls that can be booked.
type ResourcePicker struct {
	Options []Option `json:"options"`
}

// DayCell is one calendar grid cell. Filler cells outside the month have
// Day == 0, an empty label and no token.
type DayCell struct {
	Label      string `json:"label"`
	Day        int    `json:"day,omitempty"`
	Selectable bool   `json:"selectable"`
	Token      string `json:"token,omitempty"`
}

// CalendarView is a month grid, one row per week, Monday first.
type CalendarView struct {
	Year    int         `json:"year"`
	Month   time.Month  `json:"month"`
	NavPrev bool        `json:"nav_prev"`
	NavNext bool        `json:"nav_next"`
	Cells   [][]DayCell `json:"cells"`
}

// HourPhase tells whether an HourPicker selects the start or the end hour.
type HourPhase string

const (
	HourPhaseStart HourPhase = "start"
	HourPhaseEnd   HourPhase = "end"
)

// HourButton is one entry of an HourPicker. Blocked hours carry no token.
type HourButton struct {
	Label      string `json:"label"`
	Hour       int    `json:"hour"`
	Selectable bool   `json:"selectable"`
	Token      string `json:"token,omitempty"`
}

// HourPicker offers start or end hours for the selected day.
type HourPicker struct {
	Phase HourPhase    `json:"phase"`
	Day   time.Time    `json:"day"`
	Hours []HourButton `json:"hours"`
}

// Confirmation is the immutable record produced by a completed booking.
type Confirmation struct {
	ResourceID string    `json:"resource_id"`
	Date       time.Time `json:"date"`
	StartHour  int       `json:"start_hour"`
	EndHour    int       `json:"end_hour"`
}

func (ResourcePicker) ViewKind() ViewKind { return ViewResourcePicker }
func (CalendarView) ViewKind() ViewKind   { return ViewCalendar }
func (HourPicker) ViewKind() ViewKind     { return ViewHourPicker }
func (Confirmation) ViewKind() ViewKind   { return ViewConfirmation }

// Rejection reports why an event was refused.
type Rejection struct {
	Reason ReasonCode `json:"reason"`
	Notice string     `json:"notice,omitempty"`
}

// Result is what the booking flow returns for one event: the state after the
// event, the view to render and, for refused events, the rejection.
// View is nil only when there is nothing to show (no active session).
type Result struct {
	State     State      `json:"state"`
	View      View       `json:"-"`
	Rejection *Rejection `json:"rejection,omitempty"`
}

// Rejected reports whether the event was refused.
func (r Result) Rejected() bool {
	return r.Rejection != nil
}
