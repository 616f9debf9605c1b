package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/BTreeMap/HallBook/internal/models"
)

// BusyProvider supplies the reserved intervals of a resource. asOf is the
// caller's notion of "now"; implementations may use it to bound the query.
type BusyProvider interface {
	FetchBusy(ctx context.Context, resourceID string, asOf time.Time) ([]models.BusyInterval, error)
}

// BusyRecorder is a BusyProvider that can also accept new reservations.
// The booking flow only reads busy intervals; AddBusyInterval is how
// operators, fixtures and tests seed a provider.
type BusyRecorder interface {
	BusyProvider
	AddBusyInterval(ctx context.Context, resourceID string, interval models.BusyInterval) error
}

// fetchHorizon returns the span a provider has to cover for asOf: from the
// first of its month through the end of the following month.
func fetchHorizon(asOf time.Time) (from, to time.Time) {
	first := models.MonthOf(asOf)
	return first.First(), first.Next().Next().First()
}

// MockBusyProvider returns a fixed fixture in the month of asOf: the 20th is
// busy all day and the 21st is busy from 14:00.
type MockBusyProvider struct{}

// Compile-time check that MockBusyProvider implements BusyProvider.
var _ BusyProvider = MockBusyProvider{}

// FetchBusy returns the fixture intervals.
func (MockBusyProvider) FetchBusy(ctx context.Context, resourceID string, asOf time.Time) ([]models.BusyInterval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ym := models.MonthOf(asOf)
	day20 := models.Date(ym.Year, ym.Month, 20)
	day21 := models.Date(ym.Year, ym.Month, 21)
	endOfDay := 23*time.Hour + 59*time.Minute
	busy := []models.BusyInterval{
		{Start: day20, End: day20.Add(endOfDay)},
		{Start: models.AtHour(day21, 14), End: day21.Add(endOfDay)},
	}
	slog.Debug("MockBusyProvider.FetchBusy", "resourceID", resourceID, "count", len(busy))
	return busy, nil
}

// InMemoryBusyProvider keeps reservations per resource in process memory.
type InMemoryBusyProvider struct {
	mu   sync.RWMutex
	busy map[string][]models.BusyInterval
}

// Compile-time check that InMemoryBusyProvider implements BusyRecorder.
var _ BusyRecorder = (*InMemoryBusyProvider)(nil)

// NewInMemoryBusyProvider creates an empty provider.
func NewInMemoryBusyProvider() *InMemoryBusyProvider {
	return &InMemoryBusyProvider{busy: make(map[string][]models.BusyInterval)}
}

// FetchBusy returns a copy of the intervals recorded for resourceID.
func (p *InMemoryBusyProvider) FetchBusy(ctx context.Context, resourceID string, asOf time.Time) ([]models.BusyInterval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.busy[resourceID]), nil
}

// AddBusyInterval records a reservation for resourceID.
func (p *InMemoryBusyProvider) AddBusyInterval(ctx context.Context, resourceID string, interval models.BusyInterval) error {
	if !interval.Valid() {
		return fmt.Errorf("invalid busy interval %v..%v", interval.Start, interval.End)
	}
	p.mu.Lock()
	p.busy[resourceID] = append(p.busy[resourceID], models.BusyInterval{
		Start: interval.Start.UTC(),
		End:   interval.End.UTC(),
	})
	p.mu.Unlock()
	slog.Debug("InMemoryBusyProvider.AddBusyInterval", "resourceID", resourceID, "start", interval.Start, "end", interval.End)
	return nil
}
