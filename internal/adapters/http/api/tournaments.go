package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/dilemma/internal/domain/model"
)

type tournamentRequest struct {
	Name      string   `json:"name"`
	PlayerIDs []string `json:"player_ids"`
}

// sessionResponse is the polling shape of a tournament that is not finished.
type sessionResponse struct {
	SessionID string       `json:"session_id"`
	Status    model.Status `json:"status"`
	PlayerIDs []string     `json:"player_ids"`
}

type resultsResponse struct {
	Results *model.Results `json:"results"`
}

// TournamentsHandler creates and polls tournaments.
type TournamentsHandler struct {
	deps Dependencies
}

// NewTournamentsHandler creates a new tournaments handler.
func NewTournamentsHandler(deps Dependencies) *TournamentsHandler {
	return &TournamentsHandler{deps: deps}
}

// HandleCreate handles POST /tournaments. The run happens in the
// background; the response carries the session to poll.
func (h *TournamentsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req tournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	sess, err := h.deps.CreateTournament(r.Context(), req.Name, req.PlayerIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toSessionResponse(sess))
}

// HandleGet handles GET /tournaments/{id}: the results once finished,
// otherwise the current status.
func (h *TournamentsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.Tournament(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sess.Status.Finished() && sess.Results != nil {
		writeJSON(w, http.StatusOK, resultsResponse{Results: sess.Results})
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func toSessionResponse(s model.Session) sessionResponse {
	return sessionResponse{SessionID: s.ID, Status: s.Status, PlayerIDs: s.PlayerIDs}
}
