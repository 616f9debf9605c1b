package booking

import (
	"fmt"

	"github.com/BTreeMap/HallBook/internal/models"
)

// Finalize turns a fully populated session into its confirmation record.
func Finalize(s models.Session) (models.Confirmation, error) {
	switch {
	case s.ResourceID == "":
		return models.Confirmation{}, fmt.Errorf("%w: no hall selected", models.ErrInvalidInput)
	case !s.HasDay():
		return models.Confirmation{}, fmt.Errorf("%w: no day selected", models.ErrInvalidInput)
	case s.StartHour < models.OpeningHour || s.StartHour >= models.ClosingHour:
		return models.Confirmation{}, fmt.Errorf("%w: start hour %d out of range", models.ErrInvalidInput, s.StartHour)
	case s.EndHour <= s.StartHour || s.EndHour > models.ClosingHour:
		return models.Confirmation{}, fmt.Errorf("%w: end hour %d must follow start hour %d", models.ErrInvalidInput, s.EndHour, s.StartHour)
	}
	return models.Confirmation{
		ResourceID: s.ResourceID,
		Date:       models.DayOf(s.SelectedDay),
		StartHour:  s.StartHour,
		EndHour:    s.EndHour,
	}, nil
}

// Interval returns the reserved span of a confirmation in the form a
// store.BusyRecorder accepts. The machine does not record bookings itself;
// callers use it to seed providers and to check a confirmation against a
// busy snapshot.
func Interval(c models.Confirmation) models.BusyInterval {
	return models.BusyInterval{
		Start: models.AtHour(c.Date, c.StartHour),
		End:   models.AtHour(c.Date, c.EndHour),
	}
}
