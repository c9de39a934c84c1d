package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/hubsync/internal/server/events"
	"github.com/agentstation/hubsync/internal/server/response"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/push"
	"github.com/agentstation/hubsync/pkg/record"
	"github.com/agentstation/hubsync/pkg/sync"
)

// HandleListOrganizations handles GET /api/v1/organizations.
func (h *Handlers) HandleListOrganizations(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, h.client.Organizations())
}

// HandleSync handles POST /api/v1/organizations/{org}/sync.
//
// Query parameters: full, entity (repeatable), preempt, fail_fast, async.
// With async=true the cycle runs in the background and 202 is returned.
func (h *Handlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	org := r.PathValue("org")
	opts, err := syncOptions(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		go func() {
			if _, err := h.client.Sync(h.background, org, opts...); err != nil {
				h.logger.Warn().Err(err).Str("organization", org).Msg("Background sync failed")
			}
		}()
		response.Accepted(w, map[string]any{"organization": org, "status": "started"})
		return
	}

	result, err := h.client.Sync(r.Context(), org, opts...)
	if result == nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, resultView(result))
}

// HandleIngest handles POST /api/v1/organizations/{org}/entities/{entity}/records.
// The body is a JSON array of Hub records or a Hub collection envelope
// such as {"contacts": [...]}.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	org, entity := r.PathValue("org"), r.PathValue("entity")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxIngestBytes))
	if err != nil {
		response.BadRequest(w, "Could not read body", err.Error())
		return
	}
	records, err := decodeRecords(body)
	if err != nil {
		response.BadRequest(w, "Invalid records payload", err.Error())
		return
	}

	result, err := h.client.Ingest(r.Context(), org, entity, records)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.broker.Publish(events.RecordsIngested, org, map[string]any{
		"entity": entity,
		"count":  len(records),
	})
	response.Accepted(w, entityView(result))
}

// syncOptions converts query parameters to sync options.
func syncOptions(r *http.Request) ([]sync.Option, error) {
	q := r.URL.Query()
	var opts []sync.Option

	if v := q.Get("full"); v != "" {
		full, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.NewValidationError("full", v, "full must be a boolean")
		}
		opts = append(opts, sync.WithFullSync(full))
	}
	if v := q.Get("fail_fast"); v != "" {
		failFast, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.NewValidationError("fail_fast", v, "fail_fast must be a boolean")
		}
		opts = append(opts, sync.WithFailFast(failFast))
	}
	if entities := q["entity"]; len(entities) > 0 {
		var names []string
		for _, e := range entities {
			names = append(names, strings.Split(e, ",")...)
		}
		opts = append(opts, sync.WithEntities(names...))
	}
	if v := q.Get("preempt"); v != "" {
		opts = append(opts, sync.WithPreemption(push.Side(v)))
	}

	// reject bad options before taking the organization lock
	if err := sync.Defaults().Apply(opts...).Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// decodeRecords accepts a bare array or a single-collection envelope.
func decodeRecords(body []byte) ([]record.Record, error) {
	var records []record.Record
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	var found []record.Record
	collections := 0
	for key, raw := range envelope {
		if key == "pagination" {
			continue
		}
		var batch []record.Record
		if err := json.Unmarshal(raw, &batch); err != nil {
			continue
		}
		found = batch
		collections++
	}
	if collections != 1 {
		return nil, errors.NewValidationError("body", collections, "expected exactly one record collection")
	}
	return found, nil
}

type cycleView struct {
	Organization      string       `json:"organization"`
	SynchronizationID string       `json:"synchronization_id"`
	Status            string       `json:"status"`
	Summary           string       `json:"summary"`
	StartedAt         time.Time    `json:"started_at"`
	FinishedAt        time.Time    `json:"finished_at"`
	Entities          []entityData `json:"entities"`
}

type entityData struct {
	Entity           string `json:"entity"`
	HubFetched       int    `json:"hub_fetched"`
	ExternalFetched  int    `json:"external_fetched"`
	PushedToHub      int    `json:"pushed_to_hub"`
	PushedToExternal int    `json:"pushed_to_external"`
	Failed           int    `json:"failed"`
	Error            string `json:"error,omitempty"`
}

func resultView(r *sync.Result) cycleView {
	v := cycleView{
		Organization:      r.Organization,
		SynchronizationID: r.SynchronizationID,
		Status:            string(r.Status),
		Summary:           r.Summary(),
		StartedAt:         r.StartedAt,
		FinishedAt:        r.FinishedAt,
		Entities:          []entityData{},
	}
	for _, er := range r.EntityResults {
		v.Entities = append(v.Entities, entityView(er))
	}
	return v
}

func entityView(er *sync.EntityResult) entityData {
	d := entityData{
		Entity:           er.Entity,
		HubFetched:       er.HubFetched,
		ExternalFetched:  er.ExternalFetched,
		PushedToHub:      er.HubReport.Succeeded(),
		PushedToExternal: er.ExternalReport.Succeeded(),
		Failed:           er.HubReport.Failed() + er.ExternalReport.Failed(),
	}
	if er.Err != nil {
		d.Error = er.Err.Error()
	}
	return d
}
