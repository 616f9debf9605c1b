package booking

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/BTreeMap/HallBook/internal/availability"
	"github.com/BTreeMap/HallBook/internal/calendar"
	"github.com/BTreeMap/HallBook/internal/models"
)

// noticeDateLayout formats dates inside user-facing notices.
const noticeDateLayout = "02.01.2006"

// transition mutates s in response to ev. A non-nil error (always a
// *models.RejectError) discards every mutation.
type transition func(ctx context.Context, m *Machine, s *models.Session, ev models.Event, today time.Time) error

// transitions is the complete (state, event) table. StartFlow is accepted in
// every state and handled before the table is consulted; any pair missing
// here is UnexpectedInput.
var transitions = map[models.State]map[models.EventKind]transition{
	models.StateSelectingResource: {
		models.EventChooseResource: chooseResource,
	},
	models.StateSelectingDay: {
		models.EventNavigateMonth: navigateMonth,
		models.EventChooseDay:     chooseDay,
		models.EventBack:          backToResource,
	},
	models.StateSelectingStart: {
		models.EventChooseStart: chooseStart,
		models.EventBack:        backToDay,
	},
	models.StateSelectingEnd: {
		models.EventChooseEnd: chooseEnd,
		models.EventBack:      backToStart,
	},
}

func lookup(state models.State, kind models.EventKind) (transition, bool) {
	t, ok := transitions[state][kind]
	return t, ok
}

func chooseResource(ctx context.Context, m *Machine, s *models.Session, ev models.Event, today time.Time) error {
	token := ev.(models.ChooseResource).Token
	resource, ok := m.resourceByToken(token)
	if !ok {
		return models.Reject(models.ReasonInvalidInput, "Unknown hall %q.", token)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()
	busy, err := m.provider.FetchBusy(fetchCtx, resource.ID, today)
	if err != nil {
		slog.Warn("booking.chooseResource: busy interval fetch failed", "error", err,
			"sessionID", s.ID, "resourceID", resource.ID)
		return models.Reject(models.ReasonProviderUnavailable,
			"Could not load the schedule for %s. Please try again.", resource.Name)
	}

	snapshot := make([]models.BusyInterval, 0, len(busy))
	for _, b := range busy {
		if b.Valid() {
			snapshot = append(snapshot, models.BusyInterval{Start: b.Start.UTC(), End: b.End.UTC()})
		}
	}
	slices.SortFunc(snapshot, func(a, b models.BusyInterval) int {
		return a.Start.Compare(b.Start)
	})

	ym := models.MonthOf(today)
	s.ResourceID = resource.ID
	s.Busy = snapshot
	s.ViewYear, s.ViewMonth = ym.Year, ym.Month
	s.ClearDay()
	s.State = models.StateSelectingDay
	return nil
}

func navigateMonth(ctx context.Context, m *Machine, s *models.Session, ev models.Event, today time.Time) error {
	dir := ev.(models.NavigateMonth).Direction
	ym, ok := calendar.Navigate(s.ViewMonthOf(), dir, today)
	if !ok {
		return models.Reject(models.ReasonInvalidInput, "No more months in that direction.")
	}
	s.ViewYear, s.ViewMonth = ym.Year, ym.Month
	return nil
}

func chooseDay(ctx context.Context, m *Machine, s *models.Session, ev models.Event, today time.Time) error {
	day := models.DayOf(ev.(models.ChooseDay).Date)
	if day.IsZero() {
		return models.Reject(models.ReasonInvalidInput, "Missing date.")
	}
	if !calendar.InWindowDay(day, today) {
		return models.Reject(models.ReasonSlotUnavailable, "%s is outside the booking window.", day.Format(noticeDateLayout))
	}
	if day.Before(today) {
		return models.Reject(models.ReasonSlotUnavailable, "%s is in the past.", day.Format(noticeDateLayout))
	}
	if !availability.IsDaySelectable(day, s.Busy, today) {
		return models.Reject(models.ReasonSlotUnavailable, "No free hours on %s", day.Format(noticeDateLayout))
	}
	ym := models.MonthOf(day)
	s.ViewYear, s.ViewMonth = ym.Year, ym.Month
	s.SelectedDay = day
	s.StartHour, s.EndHour = 0, 0
	s.State = models.StateSelectingStart
	return nil
}

func chooseStart(ctx context.Context, m *Machine, s *models.Session, ev models.Event, today time.Time) error {
	h := ev.(models.ChooseStart).Hour
	if h < models.OpeningHour || h >= models.ClosingHour {
		return models.Reject(models.ReasonInvalidInput, "Start hour must be between %d and %d.",
			models.OpeningHour, models.ClosingHour-1)
	}
	if !availability.IsHourFree(s.SelectedDay, h, s.Busy) {
		return models.Reject(models.ReasonSlotUnavailable, "This hour is busy")
	}
	s.StartHour = h
	s.EndHour = 0
	s.State = models.StateSelectingEnd
	return nil
}

func chooseEnd(ctx context.Context, m *Machine, s *models.Session, ev models.Event, today time.Time) error {
	e := ev.(models.ChooseEnd).Hour
	if e <= s.StartHour || e > models.ClosingHour {
		return models.Reject(models.ReasonInvalidInput, "End hour must be after %02d:00 and no later than %02d:00.",
			s.StartHour, models.ClosingHour)
	}
	if !availability.IsEndHourFree(s.SelectedDay, s.StartHour, e, s.Busy) {
		return models.Reject(models.ReasonSlotUnavailable, "This hour is busy")
	}
	s.EndHour = e
	s.State = models.StateCompleted
	return nil
}

func backToResource(ctx context.Context, m *Machine, s *models.Session, ev models.Event, today time.Time) error {
	s.ClearResource()
	s.State = models.StateSelectingResource
	return nil
}

func backToDay(ctx context.Context, m *Machine, s *models.Session, ev models.Event, today time.Time) error {
	s.ClearDay()
	s.State = models.StateSelectingDay
	return nil
}

// backToStart keeps the selected day and start hour; the start picker does
// not depend on the start hour and ChooseStart overwrites it.
func backToStart(ctx context.Context, m *Machine, s *models.Session, ev models.Event, today time.Time) error {
	s.EndHour = 0
	s.State = models.StateSelectingStart
	return nil
}
