package handlers

import (
	"net/http"
	"strconv"

	"github.com/agentstation/hubsync/internal/server/response"
	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/errors"
)

// HandleListCorrelations handles GET /api/v1/organizations/{org}/correlations.
// Query parameters: hub_entity, external_entity, failed, limit.
func (h *Handlers) HandleListCorrelations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := correlation.Filter{
		HubEntity:      q.Get("hub_entity"),
		ExternalEntity: q.Get("external_entity"),
	}
	if v := q.Get("failed"); v != "" {
		failed, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(w, "failed must be a boolean", v)
			return
		}
		filter.Failed = failed
	}
	limit, err := parseLimit(q.Get("limit"), 100)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	filter.Limit = limit

	store, err := h.app.Store()
	if err != nil {
		response.InternalError(w, err)
		return
	}
	rows, err := store.List(r.Context(), r.PathValue("org"), filter)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if rows == nil {
		rows = []*correlation.Correlation{}
	}
	response.OK(w, rows)
}

// HandleListSynchronizations handles GET /api/v1/organizations/{org}/synchronizations.
func (h *Handlers) HandleListSynchronizations(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), 20)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	store, err := h.app.Store()
	if err != nil {
		response.InternalError(w, err)
		return
	}
	runs, err := store.Recent(r.Context(), r.PathValue("org"), limit)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if runs == nil {
		runs = []*correlation.Synchronization{}
	}
	response.OK(w, runs)
}

func parseLimit(v string, fallback int) (int, error) {
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.NewValidationError("limit", v, "limit must be a positive integer")
	}
	return n, nil
}
