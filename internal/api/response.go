package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/BTreeMap/HallBook/internal/models"
)

// Pre-marshaled fallback responses to avoid runtime JSON encoding failures
var (
	fallbackErrorResponse []byte
)

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// SessionPayload is the result body of every booking endpoint.
type SessionPayload struct {
	SessionID string            `json:"session_id"`
	State     models.State      `json:"state"`
	ViewKind  models.ViewKind   `json:"view_kind,omitempty"`
	View      models.View       `json:"view,omitempty"`
	Rejection *models.Rejection `json:"rejection,omitempty"`
}

func newSessionPayload(id string, result models.Result) SessionPayload {
	p := SessionPayload{
		SessionID: id,
		State:     result.State,
		View:      result.View,
		Rejection: result.Rejection,
	}
	if result.View != nil {
		p.ViewKind = result.View.ViewKind()
	}
	return p
}

// writeResult writes a booking Result. Refused events keep their view and
// are reported with the rejected status.
func writeResult(w http.ResponseWriter, okStatus int, id string, result models.Result) {
	payload := newSessionPayload(id, result)
	if !result.Rejected() {
		writeJSONResponse(w, okStatus, models.Success(payload))
		return
	}
	status := http.StatusUnprocessableEntity
	if result.Rejection.Reason == models.ReasonProviderUnavailable {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, models.Rejected(result.Rejection.Notice, payload))
}

// writeJSONResponse writes a JSON response to the http.ResponseWriter with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	// Marshal first so encoding errors are caught before headers are written
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}
