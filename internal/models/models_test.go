package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseResources(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		want    []Resource
		wantErr bool
	}{
		{name: "empty uses defaults", catalog: "", want: DefaultResources()},
		{name: "named entries", catalog: "1:Main,2:Studio", want: []Resource{{"1", "Main"}, {"2", "Studio"}}},
		{name: "missing name", catalog: "7", want: []Resource{{"7", "Hall 7"}}},
		{name: "whitespace and blanks", catalog: " 1 : Main ,, ", want: []Resource{{"1", "Main"}}},
		{name: "duplicate id", catalog: "1:A,1:B", wantErr: true},
		{name: "empty id", catalog: ":A", wantErr: true},
		{name: "only separators", catalog: ",,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResources(tt.catalog)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.catalog, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d resources, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("resource %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		token string
		want  Event
	}{
		{"/start", StartFlow{}},
		{"/rent", StartFlow{}},
		{"back", Back{}},
		{"nav:prev", NavigateMonth{Direction: DirectionPrev}},
		{"nav:next", NavigateMonth{Direction: DirectionNext}},
		{"hall:2", ChooseResource{Token: "hall:2"}},
		{"day:2026-10-20", ChooseDay{Date: Date(2026, time.October, 20)}},
		{"start:10", ChooseStart{Hour: 10}},
		{"end:12", ChooseEnd{Hour: 12}},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseToken(tt.token)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}

	for _, bad := range []string{"", "day:2026-13-01", "start:ten", "end:", "hello"} {
		if _, err := ParseToken(bad); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseToken(%q): expected ErrInvalidInput, got %v", bad, err)
		}
	}
}

func TestTokensRoundTrip(t *testing.T) {
	day := Date(2026, time.November, 3)
	ev, err := ParseToken(DayToken(day))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.(ChooseDay).Date != day {
		t.Errorf("expected %v, got %v", day, ev.(ChooseDay).Date)
	}
	if StartToken(10) != "start:10" || EndToken(22) != "end:22" {
		t.Errorf("unexpected hour tokens %q %q", StartToken(10), EndToken(22))
	}
}

func TestYearMonth(t *testing.T) {
	dec := YearMonth{Year: 2026, Month: time.December}
	if got := dec.Next(); got != (YearMonth{2027, time.January}) {
		t.Errorf("Next of December: got %v", got)
	}
	if got := (YearMonth{2027, time.January}).Prev(); got != dec {
		t.Errorf("Prev of January: got %v", got)
	}
	if !dec.Before(dec.Next()) || !dec.Next().After(dec) || dec.Before(dec) {
		t.Error("Before/After ordering broken")
	}
	if (YearMonth{2028, time.February}).Days() != 29 {
		t.Error("expected 29 days in February 2028")
	}
	if !dec.Contains(Date(2026, time.December, 31)) || dec.Contains(Date(2027, time.January, 1)) {
		t.Error("Contains boundary broken")
	}
	if dec.String() != "2026-12" {
		t.Errorf("unexpected String %q", dec.String())
	}
}

func TestReasonFor(t *testing.T) {
	rej := Reject(ReasonSlotUnavailable, "No free hours on %s", "20.10.2026")
	if !errors.Is(rej, ErrSlotUnavailable) {
		t.Error("RejectError should match its sentinel")
	}
	if errors.Is(rej, ErrInvalidInput) {
		t.Error("RejectError should not match other sentinels")
	}

	wrapped := fmt.Errorf("select day: %w", rej)
	r, ok := RejectionFor(wrapped)
	if !ok || r.Reason != ReasonSlotUnavailable || r.Notice != "No free hours on 20.10.2026" {
		t.Errorf("unexpected rejection %+v ok=%v", r, ok)
	}

	code, ok := ReasonFor(fmt.Errorf("fetch: %w", ErrProviderUnavailable))
	if !ok || code != ReasonProviderUnavailable {
		t.Errorf("expected ProviderUnavailable, got %q ok=%v", code, ok)
	}

	if _, ok := ReasonFor(errors.New("disk on fire")); ok {
		t.Error("infrastructure errors must not classify as rejections")
	}
}

func TestSessionClone(t *testing.T) {
	s := NewSession("abc", time.Now())
	s.Busy = []BusyInterval{{Start: Date(2026, 1, 1), End: Date(2026, 1, 2)}}
	c := s.Clone()
	c.Busy[0].End = Date(2026, 1, 3)
	if s.Busy[0].End != Date(2026, 1, 2) {
		t.Error("Clone must not share the busy slice")
	}

	c.SelectedDay = Date(2026, 1, 5)
	c.StartHour = 10
	c.ClearResource()
	if c.HasDay() || c.StartHour != 0 || c.ResourceID != "" || c.Busy != nil {
		t.Errorf("ClearResource left data behind: %+v", c)
	}
}
