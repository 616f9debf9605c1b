package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/BTreeMap/HallBook/internal/models"
)

// EventRequest is the body of POST /sessions/{id}/events. Either Token (a
// button token taken from a view) or Kind with its argument must be set.
type EventRequest struct {
	Token     string           `json:"token,omitempty" validate:"omitempty,max=64"`
	Kind      models.EventKind `json:"kind,omitempty" validate:"omitempty,oneof=start_flow choose_resource navigate_month choose_day choose_start choose_end back"`
	Resource  string           `json:"resource,omitempty" validate:"omitempty,max=32"`
	Direction models.Direction `json:"direction,omitempty" validate:"omitempty,oneof=prev next"`
	Date      string           `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Hour      *int             `json:"hour,omitempty" validate:"omitempty,min=0,max=24"`
}

// Event converts the request into a booking event. Missing arguments are
// reported as errors wrapping models.ErrInvalidInput.
func (req EventRequest) Event() (models.Event, error) {
	if req.Token != "" {
		return models.ParseToken(req.Token)
	}

	switch req.Kind {
	case "":
		return nil, fmt.Errorf("%w: token or kind is required", models.ErrInvalidInput)
	case models.EventStartFlow:
		return models.StartFlow{}, nil
	case models.EventBack:
		return models.Back{}, nil
	case models.EventChooseResource:
		if req.Resource == "" {
			return nil, fmt.Errorf("%w: resource is required", models.ErrInvalidInput)
		}
		token := req.Resource
		if !strings.HasPrefix(token, models.TokenResourcePrefix) {
			token = models.TokenResourcePrefix + token
		}
		return models.ChooseResource{Token: token}, nil
	case models.EventNavigateMonth:
		if req.Direction == "" {
			return nil, fmt.Errorf("%w: direction is required", models.ErrInvalidInput)
		}
		return models.NavigateMonth{Direction: req.Direction}, nil
	case models.EventChooseDay:
		day, err := time.Parse(models.DateLayout, req.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: date is required as YYYY-MM-DD", models.ErrInvalidInput)
		}
		return models.ChooseDay{Date: models.DayOf(day)}, nil
	case models.EventChooseStart, models.EventChooseEnd:
		if req.Hour == nil {
			return nil, fmt.Errorf("%w: hour is required", models.ErrInvalidInput)
		}
		if req.Kind == models.EventChooseStart {
			return models.ChooseStart{Hour: *req.Hour}, nil
		}
		return models.ChooseEnd{Hour: *req.Hour}, nil
	}
	return nil, fmt.Errorf("%w: unknown event kind %q", models.ErrInvalidInput, req.Kind)
}

// allowMethod answers 405 with an Allow header when r does not use method.
func allowMethod(w http.ResponseWriter, r *http.Request, handler, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	slog.Warn("Server."+handler+": method not allowed", "method", r.Method, "path", r.URL.Path)
	writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, "healthHandler", http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"service": "hallbook"}))
}

func (s *Server) resourcesHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, "resourcesHandler", http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.booker.Resources()))
}

// createSessionHandler issues a new session id and starts its booking flow.
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !allowMethod(w, r, "createSessionHandler", http.MethodPost) {
		return
	}

	id := s.newID()
	result, err := s.booker.Handle(r.Context(), id, models.StartFlow{})
	if err != nil {
		slog.Error("Server.createSessionHandler: failed to start session", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start booking session"))
		return
	}
	slog.Info("Server.createSessionHandler: session created", "sessionID", id)
	w.Header().Set("Location", "/sessions/"+id)
	writeResult(w, http.StatusCreated, id, result)
}

// getSessionHandler returns the current state and view of a session.
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, "getSessionHandler", http.MethodGet) {
		return
	}
	id := r.PathValue("id")

	if _, err := s.booker.Session(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
			return
		}
		slog.Error("Server.getSessionHandler: failed to load session", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}
	result, err := s.booker.Current(r.Context(), id)
	if err != nil {
		slog.Error("Server.getSessionHandler: failed to render session", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}
	writeResult(w, http.StatusOK, id, result)
}

// eventHandler delivers one booking event to a session.
func (s *Server) eventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !allowMethod(w, r, "eventHandler", http.MethodPost) {
		return
	}
	id := r.PathValue("id")

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.eventHandler: failed to decode JSON", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		slog.Warn("Server.eventHandler: validation failed", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	ev, err := req.Event()
	if err != nil {
		slog.Warn("Server.eventHandler: invalid event", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result, err := s.booker.Handle(r.Context(), id, ev)
	if err != nil {
		slog.Error("Server.eventHandler: failed to handle event", "error", err, "sessionID", id, "event", ev.Kind())
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process event"))
		return
	}
	if result.State == models.StateIdle && result.Rejected() {
		writeJSONResponse(w, http.StatusNotFound, models.Rejected(result.Rejection.Notice, newSessionPayload(id, result)))
		return
	}
	writeResult(w, http.StatusOK, id, result)
}
