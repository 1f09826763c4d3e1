package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/dilemma/internal/domain/model"
)

type playerRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FunctionName string `json:"function_name"`
	ShortTactic  string `json:"short_tactic"`
	Code         string `json:"code"`
}

// PlayersHandler registers and looks up players.
type PlayersHandler struct {
	deps Dependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps Dependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// HandleCreate handles POST /players.
func (h *PlayersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	p, err := h.deps.RegisterPlayer(r.Context(), model.Player{
		ID:           req.ID,
		Name:         req.Name,
		FunctionName: req.FunctionName,
		ShortTactic:  req.ShortTactic,
		Code:         req.Code,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /players/{ids} where ids is comma separated.
func (h *PlayersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ids := splitIDs(r.PathValue("ids"))
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrNoIDs)
		return
	}
	players, err := h.deps.Players(r.Context(), ids)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
