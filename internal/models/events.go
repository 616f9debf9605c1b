package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventKind identifies an inbound booking event.
type EventKind string

// Inbound event kinds delivered by the presentation layer.
const (
	EventStartFlow      EventKind = "start_flow"
	EventChooseResource EventKind = "choose_resource"
	EventNavigateMonth  EventKind = "navigate_month"
	EventChooseDay      EventKind = "choose_day"
	EventChooseStart    EventKind = "choose_start"
	EventChooseEnd      EventKind = "choose_end"
	EventBack           EventKind = "back"
)

// AllEventKinds lists every inbound event kind.
func AllEventKinds() []EventKind {
	return []EventKind{
		EventStartFlow,
		EventChooseResource,
		EventNavigateMonth,
		EventChooseDay,
		EventChooseStart,
		EventChooseEnd,
		EventBack,
	}
}

// Event is one user action. The set of implementations is closed.
type Event interface {
	Kind() EventKind
	isEvent()
}

// StartFlow begins (or restarts) a booking flow.
type StartFlow struct{}

// ChooseResource selects a hall by its button token.
type ChooseResource struct {
	Token string
}

// Direction is a calendar navigation direction.
type Direction string

const (
	DirectionPrev Direction = "prev"
	DirectionNext Direction = "next"
)

// NavigateMonth moves the calendar one month back or forward.
type NavigateMonth struct {
	Direction Direction
}

// ChooseDay selects a calendar date.
type ChooseDay struct {
	Date time.Time
}

// ChooseStart selects the start hour.
type ChooseStart struct {
	Hour int
}

// ChooseEnd selects the end hour.
type ChooseEnd struct {
	Hour int
}

// Back returns to the previous step.
type Back struct{}

func (StartFlow) Kind() EventKind      { return EventStartFlow }
func (ChooseResource) Kind() EventKind { return EventChooseResource }
func (NavigateMonth) Kind() EventKind  { return EventNavigateMonth }
func (ChooseDay) Kind() EventKind      { return EventChooseDay }
func (ChooseStart) Kind() EventKind    { return EventChooseStart }
func (ChooseEnd) Kind() EventKind      { return EventChooseEnd }
func (Back) Kind() EventKind           { return EventBack }

func (StartFlow) isEvent()      {}
func (ChooseResource) isEvent() {}
func (NavigateMonth) isEvent()  {}
func (ChooseDay) isEvent()      {}
func (ChooseStart) isEvent()    {}
func (ChooseEnd) isEvent()      {}
func (Back) isEvent()           {}

// Button tokens carried by view descriptors.
const (
	TokenResourcePrefix = "hall:"
	TokenDayPrefix      = "day:"
	TokenStartPrefix    = "start:"
	TokenEndPrefix      = "end:"
	TokenNavPrev        = "nav:prev"
	TokenNavNext        = "nav:next"
	TokenBack           = "back"
	TokenStart          = "/start"
	TokenRent           = "/rent"
)

// DateLayout is the wire format of dates inside tokens and API payloads.
const DateLayout = "2006-01-02"

// DayToken returns the token that selects day.
func DayToken(day time.Time) string {
	return TokenDayPrefix + DayOf(day).Format(DateLayout)
}

// StartToken returns the token that selects start hour h.
func StartToken(h int) string {
	return TokenStartPrefix + strconv.Itoa(h)
}

// EndToken returns the token that selects end hour h.
func EndToken(h int) string {
	return TokenEndPrefix + strconv.Itoa(h)
}

// ParseToken decodes a button token into its event.
// Malformed tokens return an error wrapping ErrInvalidInput.
func ParseToken(token string) (Event, error) {
	token = strings.TrimSpace(token)
	switch token {
	case TokenStart, TokenRent:
		return StartFlow{}, nil
	case TokenBack:
		return Back{}, nil
	case TokenNavPrev:
		return NavigateMonth{Direction: DirectionPrev}, nil
	case TokenNavNext:
		return NavigateMonth{Direction: DirectionNext}, nil
	}

	switch {
	case strings.HasPrefix(token, TokenResourcePrefix):
		return ChooseResource{Token: token}, nil
	case strings.HasPrefix(token, TokenDayPrefix):
		day, err := time.Parse(DateLayout, strings.TrimPrefix(token, TokenDayPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: bad date in token %q", ErrInvalidInput, token)
		}
		return ChooseDay{Date: DayOf(day)}, nil
	case strings.HasPrefix(token, TokenStartPrefix):
		h, err := strconv.Atoi(strings.TrimPrefix(token, TokenStartPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: bad hour in token %q", ErrInvalidInput, token)
		}
		return ChooseStart{Hour: h}, nil
	case strings.HasPrefix(token, TokenEndPrefix):
		h, err := strconv.Atoi(strings.TrimPrefix(token, TokenEndPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: bad hour in token %q", ErrInvalidInput, token)
		}
		return ChooseEnd{Hour: h}, nil
	}
	return nil, fmt.Errorf("%w: unknown token %q", ErrInvalidInput, token)
}
