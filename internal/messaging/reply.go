package messaging

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/HallBook/internal/models"
)

// ParseReply turns a chat message into a booking event. Bare numbers are
// read against the session's current step: a hall id, a day of the month
// on display, or an hour. Button tokens ("day:2026-10-20") are accepted as is.
// Unparseable text returns an error wrapping models.ErrInvalidInput.
func ParseReply(session models.Session, text string) (models.Event, error) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	switch lower {
	case models.TokenStart, models.TokenRent, "start", "rent", "book":
		return models.StartFlow{}, nil
	case "0", "back", "/back":
		return models.Back{}, nil
	case "<", "prev", "previous":
		return models.NavigateMonth{Direction: models.DirectionPrev}, nil
	case ">", "next":
		return models.NavigateMonth{Direction: models.DirectionNext}, nil
	case "":
		return nil, fmt.Errorf("%w: empty message", models.ErrInvalidInput)
	}

	if strings.Contains(lower, ":") && !isClock(lower) {
		return models.ParseToken(text)
	}

	switch session.State {
	case models.StateSelectingResource:
		return models.ChooseResource{Token: models.TokenResourcePrefix + text}, nil
	case models.StateSelectingDay:
		day, err := parseDay(session, lower)
		if err != nil {
			return nil, err
		}
		return models.ChooseDay{Date: day}, nil
	case models.StateSelectingStart:
		h, err := parseHour(lower)
		if err != nil {
			return nil, err
		}
		return models.ChooseStart{Hour: h}, nil
	case models.StateSelectingEnd:
		h, err := parseHour(lower)
		if err != nil {
			return nil, err
		}
		return models.ChooseEnd{Hour: h}, nil
	}
	return nil, fmt.Errorf("%w: %q outside a booking", models.ErrInvalidInput, text)
}

// isClock reports whether s looks like "10:00" or "9:00".
func isClock(s string) bool {
	h, m, ok := strings.Cut(s, ":")
	if !ok || m != "00" {
		return false
	}
	_, err := strconv.Atoi(h)
	return err == nil
}

// parseHour accepts "10", "10:00" and "10h".
func parseHour(s string) (int, error) {
	s = strings.TrimSuffix(strings.TrimSuffix(s, ":00"), "h")
	h, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an hour", models.ErrInvalidInput, s)
	}
	return h, nil
}

// parseDay accepts a day of the displayed month, "dd.mm.yyyy" or "yyyy-mm-dd".
func parseDay(session models.Session, s string) (time.Time, error) {
	for _, layout := range []string{textDateLayout, models.DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DayOf(t), nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a day", models.ErrInvalidInput, s)
	}
	ym := session.ViewMonthOf()
	if n < 1 || n > ym.Days() {
		return time.Time{}, fmt.Errorf("%w: %s has no day %d", models.ErrInvalidInput, ym, n)
	}
	return models.Date(ym.Year, ym.Month, n), nil
}
