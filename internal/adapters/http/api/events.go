package api

import (
	"net/http"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
)

// EventsHandler accepts match completion callbacks.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleMatchCompleted handles POST /matches/completed requests.
func (h *EventsHandler) HandleMatchCompleted(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_completed"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var m model.Match
	if err := decode(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	status, err := h.deps.SubmitMatch(r.Context(), m)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if status == types.IngestDuplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: status, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: status})
}
