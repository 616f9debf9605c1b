package models

import (
	"fmt"
	"strings"
	"time"
)

// Operating range of a hall. Start hours run OpeningHour..ClosingHour-1,
// end hours run up to and including ClosingHour.
const (
	OpeningHour = 10
	ClosingHour = 22
)

// BusyInterval is a half-open [Start, End) range during which a resource is reserved.
// Times are always UTC.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the interval is non-empty.
func (b BusyInterval) Valid() bool {
	return b.Start.Before(b.End)
}

// Resource is a bookable hall.
type Resource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Token returns the button token that selects this resource.
func (r Resource) Token() string {
	return TokenResourcePrefix + r.ID
}

// DefaultResources is the hall catalog used when none is configured.
func DefaultResources() []Resource {
	return []Resource{
		{ID: "1", Name: "Hall 1"},
		{ID: "2", Name: "Hall 2"},
	}
}

// ParseResources parses a catalog in the form "id:Name,id:Name".
// An entry without a name gets "Hall <id>".
func ParseResources(catalog string) ([]Resource, error) {
	catalog = strings.TrimSpace(catalog)
	if catalog == "" {
		return DefaultResources(), nil
	}

	seen := make(map[string]bool)
	var resources []Resource
	for _, entry := range strings.Split(catalog, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, _ := strings.Cut(entry, ":")
		id = strings.TrimSpace(id)
		name = strings.TrimSpace(name)
		if id == "" || strings.ContainsAny(id, ": ") {
			return nil, fmt.Errorf("invalid resource id in %q", entry)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate resource id %q", id)
		}
		seen[id] = true
		if name == "" {
			name = "Hall " + id
		}
		resources = append(resources, Resource{ID: id, Name: name})
	}
	if len(resources) == 0 {
		return nil, fmt.Errorf("resource catalog %q is empty", catalog)
	}
	return resources, nil
}

// Date returns midnight UTC of the given calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates t to midnight UTC of its calendar date.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return Date(t.Year(), t.Month(), t.Day())
}

// AtHour returns day@hour:00 UTC.
func AtHour(day time.Time, hour int) time.Time {
	return DayOf(day).Add(time.Duration(hour) * time.Hour)
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) YearMonth {
	t = t.UTC()
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// First returns midnight UTC on the first day of the month.
func (ym YearMonth) First() time.Time {
	return Date(ym.Year, ym.Month, 1)
}

// Next returns the following calendar month.
func (ym YearMonth) Next() YearMonth {
	return MonthOf(ym.First().AddDate(0, 1, 0))
}

// Prev returns the preceding calendar month.
func (ym YearMonth) Prev() YearMonth {
	return MonthOf(ym.First().AddDate(0, -1, 0))
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// After reports whether ym is strictly later than other.
func (ym YearMonth) After(other YearMonth) bool {
	return other.Before(ym)
}

// Days returns the number of days in the month.
func (ym YearMonth) Days() int {
	return ym.First().AddDate(0, 1, -1).Day()
}

// Contains reports whether day falls inside the month.
func (ym YearMonth) Contains(day time.Time) bool {
	return MonthOf(day) == ym
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}
