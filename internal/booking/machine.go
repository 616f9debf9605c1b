// Package booking implements the hall booking state machine.
//
// A Machine accepts one event at a time per session id, validates it against
// the session's current state and busy-interval snapshot, persists the new
// session through a store.SessionStore, and returns the view the presentation
// layer should render next. Rejected events are reported in the Result and
// never change the stored session.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/HallBook/internal/models"
	"github.com/BTreeMap/HallBook/internal/store"
)

// DefaultFetchTimeout bounds the busy-interval fetch made on resource selection.
const DefaultFetchTimeout = 5 * time.Second

// NoSessionNotice is shown when an event arrives without a booking in progress.
const NoSessionNotice = "No booking in progress. Send /start to begin."

// errFinalized aborts the store update of a transition into StateCompleted.
var errFinalized = errors.New("booking finalized")

// Opts holds configuration options for a Machine.
type Opts struct {
	Clock        func() time.Time
	FetchTimeout time.Duration
	Resources    []models.Resource
	Store        store.SessionStore
	Provider     store.BusyProvider
}

// Option defines a configuration option for a Machine.
type Option func(*Opts)

// WithClock sets the wall clock used to derive "today".
func WithClock(clock func() time.Time) Option {
	return func(o *Opts) {
		o.Clock = clock
	}
}

// WithFetchTimeout bounds each busy-interval fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.FetchTimeout = d
	}
}

// WithResources sets the hall catalog.
func WithResources(resources []models.Resource) Option {
	return func(o *Opts) {
		o.Resources = resources
	}
}

// WithStore sets the session store.
func WithStore(s store.SessionStore) Option {
	return func(o *Opts) {
		o.Store = s
	}
}

// WithProvider sets the busy-interval provider.
func WithProvider(p store.BusyProvider) Option {
	return func(o *Opts) {
		o.Provider = p
	}
}

// Machine is the booking state machine. It is safe for concurrent use;
// events for one session id are handled strictly one at a time.
type Machine struct {
	store        store.SessionStore
	provider     store.BusyProvider
	resources    []models.Resource
	clock        func() time.Time
	fetchTimeout time.Duration
}

// NewMachine creates a Machine. Unset options default to an in-memory store,
// the mock busy provider, the default hall catalog and the system clock.
func NewMachine(opts ...Option) *Machine {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Store == nil {
		cfg.Store = store.NewInMemoryStore()
	}
	if cfg.Provider == nil {
		cfg.Provider = store.MockBusyProvider{}
	}
	if len(cfg.Resources) == 0 {
		cfg.Resources = models.DefaultResources()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	slog.Debug("NewMachine created", "resources", len(cfg.Resources), "fetchTimeout", cfg.FetchTimeout)
	return &Machine{
		store:        cfg.Store,
		provider:     cfg.Provider,
		resources:    cfg.Resources,
		clock:        cfg.Clock,
		fetchTimeout: cfg.FetchTimeout,
	}
}

// Resources returns the hall catalog.
func (m *Machine) Resources() []models.Resource {
	out := make([]models.Resource, len(m.resources))
	copy(out, m.resources)
	return out
}

func (m *Machine) today() time.Time {
	return models.DayOf(m.clock())
}

func (m *Machine) resourceByToken(token string) (models.Resource, bool) {
	for _, r := range m.resources {
		if r.Token() == token {
			return r, true
		}
	}
	return models.Resource{}, false
}

// Handle applies ev to the session identified by id.
//
// The returned error is non-nil only for infrastructure failures; refused
// events come back as a Result carrying a Rejection and the unchanged view.
func (m *Machine) Handle(ctx context.Context, id string, ev models.Event) (models.Result, error) {
	if id == "" {
		return models.Result{}, models.ErrEmptySessionID
	}
	if ev == nil {
		return models.Result{}, fmt.Errorf("%w: nil event", models.ErrInvalidInput)
	}

	unlock := m.store.Lock(id)
	defer unlock()

	today := m.today()
	slog.Debug("Machine.Handle: event received", "sessionID", id, "event", ev.Kind())

	if ev.Kind() == models.EventStartFlow {
		return m.start(ctx, id, today)
	}

	current, err := m.store.Get(ctx, id)
	if errors.Is(err, models.ErrSessionNotFound) {
		slog.Debug("Machine.Handle: no active session", "sessionID", id, "event", ev.Kind())
		return models.Result{
			State:     models.StateIdle,
			Rejection: &models.Rejection{Reason: models.ReasonUnexpectedInput, Notice: NoSessionNotice},
		}, nil
	}
	if err != nil {
		slog.Error("Machine.Handle: failed to load session", "error", err, "sessionID", id)
		return models.Result{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	apply, ok := lookup(current.State, ev.Kind())
	if !ok {
		return m.reject(current, today, models.Reject(models.ReasonUnexpectedInput,
			"That action is not available right now.")), nil
	}

	// A completing transition is never saved: the update is aborted with
	// errFinalized and clearing the session becomes the only write.
	var confirmation models.Confirmation
	updated, err := m.store.Update(ctx, id, func(s *models.Session) error {
		if err := apply(ctx, m, s, ev, today); err != nil {
			return err
		}
		if s.State != models.StateCompleted {
			return nil
		}
		c, err := Finalize(*s)
		if err != nil {
			// ChooseEnd validated every field, so this is a broken invariant
			// and not a rejection.
			return fmt.Errorf("failed to finalize session: %v", err)
		}
		confirmation = c
		return errFinalized
	})
	if errors.Is(err, errFinalized) {
		return m.complete(ctx, id, confirmation)
	}
	if err != nil {
		if _, ok := models.ReasonFor(err); ok {
			return m.reject(current, today, err), nil
		}
		slog.Error("Machine.Handle: failed to update session", "error", err, "sessionID", id)
		return models.Result{}, fmt.Errorf("failed to update session %s: %w", id, err)
	}

	slog.Info("Machine.Handle: transition applied", "sessionID", id, "event", ev.Kind(),
		"from", current.State, "to", updated.State)
	return models.Result{State: updated.State, View: ViewFor(updated, m.resources, today)}, nil
}

// start implements Restart: any existing session is discarded.
func (m *Machine) start(ctx context.Context, id string, today time.Time) (models.Result, error) {
	session, err := m.store.Create(ctx, id)
	if err != nil {
		slog.Error("Machine.start: failed to create session", "error", err, "sessionID", id)
		return models.Result{}, fmt.Errorf("failed to create session %s: %w", id, err)
	}
	slog.Info("Machine.start: booking flow started", "sessionID", id)
	return models.Result{State: session.State, View: ViewFor(session, m.resources, today)}, nil
}

// complete removes a finalized session and returns its confirmation. If the
// clear fails the stored session is still in SelectingEnd.
func (m *Machine) complete(ctx context.Context, id string, confirmation models.Confirmation) (models.Result, error) {
	if err := m.store.Clear(ctx, id); err != nil {
		slog.Error("Machine.complete: failed to clear session", "error", err, "sessionID", id)
		return models.Result{}, fmt.Errorf("failed to clear session %s: %w", id, err)
	}
	slog.Info("Machine.complete: booking confirmed", "sessionID", id, "resourceID", confirmation.ResourceID,
		"date", confirmation.Date.Format(models.DateLayout), "start", confirmation.StartHour, "end", confirmation.EndHour)
	return models.Result{State: models.StateCompleted, View: confirmation}, nil
}

// reject builds the Result for a refused event: unchanged state and view.
func (m *Machine) reject(current models.Session, today time.Time, err error) models.Result {
	rejection, ok := models.RejectionFor(err)
	if !ok {
		rejection = &models.Rejection{Reason: models.ReasonInvalidInput, Notice: err.Error()}
	}
	slog.Debug("Machine.reject: event refused", "sessionID", current.ID, "state", current.State,
		"reason", rejection.Reason, "notice", rejection.Notice)
	return models.Result{
		State:     current.State,
		View:      ViewFor(current, m.resources, today),
		Rejection: rejection,
	}
}

// Session returns a snapshot of the session for id.
func (m *Machine) Session(ctx context.Context, id string) (models.Session, error) {
	return m.store.Get(ctx, id)
}

// Current returns the state and view of the session for id without changing it.
// An absent session reports StateIdle with no view.
func (m *Machine) Current(ctx context.Context, id string) (models.Result, error) {
	s, err := m.store.Get(ctx, id)
	if errors.Is(err, models.ErrSessionNotFound) {
		return models.Result{State: models.StateIdle}, nil
	}
	if err != nil {
		return models.Result{}, err
	}
	return models.Result{State: s.State, View: ViewFor(s, m.resources, m.today())}, nil
}
