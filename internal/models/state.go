// Package models defines state management structures for HallBook booking sessions.
package models

import (
	"slices"
	"time"
)

// State is the booking flow step a session is in.
type State string

// Booking flow states.
const (
	StateIdle              State = "IDLE"
	StateSelectingResource State = "SELECTING_RESOURCE"
	StateSelectingDay      State = "SELECTING_DAY"
	StateSelectingStart    State = "SELECTING_START"
	StateSelectingEnd      State = "SELECTING_END"
	StateCompleted         State = "COMPLETED"
)

// AllStates lists every booking state in flow order.
func AllStates() []State {
	return []State{
		StateIdle,
		StateSelectingResource,
		StateSelectingDay,
		StateSelectingStart,
		StateSelectingEnd,
		StateCompleted,
	}
}

// Session is the per-conversation record of a booking in progress.
// Zero values mean "not chosen yet": empty ResourceID, zero SelectedDay,
// StartHour/EndHour of 0.
type Session struct {
	ID          string         `json:"id"`
	State       State          `json:"state"`
	ResourceID  string         `json:"resource_id,omitempty"`
	Busy        []BusyInterval `json:"busy,omitempty"`
	ViewYear    int            `json:"view_year,omitempty"`
	ViewMonth   time.Month     `json:"view_month,omitempty"`
	SelectedDay time.Time      `json:"selected_day,omitempty"`
	StartHour   int            `json:"start_hour,omitempty"`
	EndHour     int            `json:"end_hour,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewSession returns a fresh session positioned at resource selection.
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:        id,
		State:     StateSelectingResource,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (s Session) Clone() Session {
	s.Busy = slices.Clone(s.Busy)
	return s
}

// ViewMonthOf returns the month currently shown by calendar navigation.
func (s Session) ViewMonthOf() YearMonth {
	return YearMonth{Year: s.ViewYear, Month: s.ViewMonth}
}

// HasDay reports whether a day has been selected.
func (s Session) HasDay() bool {
	return !s.SelectedDay.IsZero()
}

// ClearResource drops everything captured by a resource selection.
func (s *Session) ClearResource() {
	s.ResourceID = ""
	s.Busy = nil
	s.ViewYear = 0
	s.ViewMonth = 0
	s.ClearDay()
}

// ClearDay drops the selected day and both hours.
func (s *Session) ClearDay() {
	s.SelectedDay = time.Time{}
	s.StartHour = 0
	s.EndHour = 0
}
