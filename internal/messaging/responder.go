package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/HallBook/internal/models"
)

// Messages sent when a reply cannot be turned into a booking step.
const (
	DefaultErrorMessage  = "Something went wrong on our side. Please try again in a moment."
	NotUnderstoodMessage = "Sorry, I did not understand that."
	IdleMessage          = "Send /start to book a hall."
)

// Booker is the part of the booking machine the responder drives.
type Booker interface {
	Handle(ctx context.Context, id string, ev models.Event) (models.Result, error)
	Session(ctx context.Context, id string) (models.Session, error)
	Current(ctx context.Context, id string) (models.Result, error)
}

// BookingResponder routes inbound chat messages to the booking machine and
// replies with the rendered result. The canonical sender is the session id.
type BookingResponder struct {
	service Service
	booker  Booker
}

// NewBookingResponder creates a responder for service.
func NewBookingResponder(service Service, booker Booker) *BookingResponder {
	return &BookingResponder{service: service, booker: booker}
}

// Run consumes the service's responses until ctx is done or the service is
// stopped. Messages are handled one at a time in arrival order. Receipts are
// drained so senders never block on them.
func (r *BookingResponder) Run(ctx context.Context) error {
	slog.Info("BookingResponder.Run: started")
	responses := r.service.Responses()
	receipts := r.service.Receipts()
	for {
		select {
		case <-ctx.Done():
			slog.Info("BookingResponder.Run: context done, stopping")
			return nil
		case resp, ok := <-responses:
			if !ok {
				slog.Info("BookingResponder.Run: responses channel closed, stopping")
				return nil
			}
			if err := r.ProcessResponse(ctx, resp); err != nil {
				slog.Error("BookingResponder.Run: failed to process message", "error", err, "from", resp.From)
			}
		case receipt, ok := <-receipts:
			if !ok {
				receipts = nil
				continue
			}
			slog.Debug("BookingResponder.Run: receipt", "to", receipt.To, "status", receipt.Status)
		}
	}
}

// ProcessResponse handles one inbound message end to end.
func (r *BookingResponder) ProcessResponse(ctx context.Context, resp models.Response) error {
	id, err := r.service.ValidateAndCanonicalizeRecipient(resp.From)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	session, err := r.booker.Session(ctx, id)
	if errors.Is(err, models.ErrSessionNotFound) {
		session = models.Session{ID: id, State: models.StateIdle}
	} else if err != nil {
		r.send(ctx, id, DefaultErrorMessage)
		return fmt.Errorf("failed to load session %s: %w", id, err)
	}

	ev, err := ParseReply(session, resp.Body)
	if err != nil {
		slog.Debug("BookingResponder.ProcessResponse: unparseable reply", "sessionID", id, "state", session.State, "error", err)
		return r.send(ctx, id, r.notUnderstood(ctx, id, session))
	}

	result, err := r.booker.Handle(ctx, id, ev)
	if err != nil {
		r.send(ctx, id, DefaultErrorMessage)
		return fmt.Errorf("booking event %s failed: %w", ev.Kind(), err)
	}
	slog.Debug("BookingResponder.ProcessResponse: event handled", "sessionID", id, "event", ev.Kind(),
		"state", result.State, "rejected", result.Rejected())

	return r.send(ctx, id, Render(result))
}

// notUnderstood repeats the current step below an apology.
func (r *BookingResponder) notUnderstood(ctx context.Context, id string, session models.Session) string {
	if session.State == models.StateIdle {
		return NotUnderstoodMessage + " " + IdleMessage
	}
	current, err := r.booker.Current(ctx, id)
	if err != nil || current.View == nil {
		return NotUnderstoodMessage
	}
	current.Rejection = &models.Rejection{Reason: models.ReasonInvalidInput, Notice: NotUnderstoodMessage}
	return Render(current)
}

func (r *BookingResponder) send(ctx context.Context, to, body string) error {
	if err := r.service.SendMessage(ctx, to, body); err != nil {
		slog.Error("BookingResponder failed to send message", "error", err, "to", to)
		return fmt.Errorf("failed to send reply to %s: %w", to, err)
	}
	return nil
}
