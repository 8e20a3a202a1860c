package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"greencircuit/internal/circuit"
	"greencircuit/internal/ingest"
	"greencircuit/internal/metrics"
	"greencircuit/internal/model"
	"greencircuit/internal/store"
)

// DatasetsHandler handles POST/GET /v1/datasets
func (s *Server) DatasetsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		p := s.getPrincipal(r)
		if !canWrite(p) {
			writeProblem(w, 403, "Forbidden", "analyst or admin required", r.URL.Path)
			return
		}
		name := r.URL.Query().Get("name")
		var body io.Reader = r.Body
		// Accept either a raw CSV body or a multipart form with a "file" part.
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, hdr, err := r.FormFile("file")
			if err != nil {
				writeProblem(w, 400, "Invalid upload", err.Error(), r.URL.Path)
				return
			}
			defer func() { _ = f.Close() }()
			body = f
			if name == "" {
				name = hdr.Filename
			}
		}
		records, err := ingest.ParseCSV(body)
		if err != nil {
			writeError(w, "Invalid dataset", err, r.URL.Path)
			return
		}
		if len(records) == 0 {
			writeProblem(w, 400, "Empty dataset", "no data rows", r.URL.Path)
			return
		}
		d, err := s.Store.CreateDataset(r.Context(), p.Tenant, name, records)
		if err != nil {
			writeProblem(w, 500, "Create dataset failed", err.Error(), r.URL.Path)
			return
		}
		metrics.DatasetRows.Observe(float64(d.Rows))
		s.Pub.Emit(r.Context(), p.Tenant, "dataset.created", map[string]any{"datasetId": d.ID, "rows": d.Rows})
		writeJSON(w, http.StatusCreated, map[string]any{"datasetId": d.ID, "rows": d.Rows, "name": d.Name})
	case http.MethodGet:
		p := s.getPrincipal(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListDatasets(r.Context(), p.Tenant, cursor, limit)
		if err != nil {
			writeProblem(w, 500, "List datasets failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DatasetByIDHandler handles GET /v1/datasets/{id} and the event stream at
// /v1/datasets/{id}/events/stream.
func (s *Server) DatasetByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/datasets/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) > 2 && parts[1] == "events" && parts[2] == "stream" {
		s.datasetEventStream(w, r, id)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	d, err := s.Store.GetDataset(r.Context(), p.Tenant, id)
	if err != nil {
		writeError(w, "Dataset not found", err, r.URL.Path)
		return
	}
	// Summary by default; records only on request (they can be large).
	if r.URL.Query().Get("includeRecords") != "true" {
		d.Records = nil
	}
	writeJSON(w, http.StatusOK, d)
}

// datasetEventStream serves SSE with circuit events for one dataset.
func (s *Server) datasetEventStream(w http.ResponseWriter, r *http.Request, datasetID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if _, err := s.Store.GetDataset(r.Context(), p.Tenant, datasetID); err != nil {
		writeError(w, "Dataset not found", err, r.URL.Path)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(datasetID)
	defer s.Broker.Unsubscribe(datasetID, ch)
	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case evt, open := <-ch:
			if !open {
				return
			}
			data, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
		}
	}
}

// CircuitsHandler handles POST/GET /v1/circuits
func (s *Server) CircuitsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		p := s.getPrincipal(r)
		if !canWrite(p) {
			writeProblem(w, 403, "Forbidden", "analyst or admin required", r.URL.Path)
			return
		}
		var req model.SolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateSolveRequest(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
			return
		}
		d, err := s.Store.GetDataset(r.Context(), p.Tenant, req.DatasetID)
		if err != nil {
			writeError(w, "Dataset not found", err, r.URL.Path)
			return
		}
		start := time.Now()
		plan, err := circuit.Build(d.Records, req.Points, s.MaxPasses)
		if err != nil {
			writeError(w, "Solve failed", err, r.URL.Path)
			return
		}
		metrics.SolveDuration.Observe(time.Since(start).Seconds())
		if plan.BaselineLength > 0 {
			metrics.SolveImprovement.Observe(plan.TotalLength / plan.BaselineLength)
		}
		c := model.Circuit{
			TenantID:       p.Tenant,
			DatasetID:      d.ID,
			Points:         req.Points,
			Order:          plan.Order,
			Stops:          plan.Stops,
			TotalLength:    plan.TotalLength,
			BaselineLength: plan.BaselineLength,
			MeanPollution:  plan.MeanPollution,
			MeanTraffic:    plan.MeanTraffic,
		}
		c, err = s.Store.SaveCircuit(r.Context(), c)
		if err != nil {
			writeProblem(w, 500, "Save circuit failed", err.Error(), r.URL.Path)
			return
		}
		evtData := map[string]any{
			"circuitId":     c.ID,
			"datasetId":     c.DatasetID,
			"points":        c.Points,
			"totalLength":   c.TotalLength,
			"meanPollution": c.MeanPollution,
			"meanTraffic":   c.MeanTraffic,
		}
		s.Broker.Publish(d.ID, SSEEvent{Type: "circuit.solved", Data: evtData})
		s.Pub.Emit(r.Context(), p.Tenant, "circuit.solved", evtData)
		writeJSON(w, http.StatusOK, c)
	case http.MethodGet:
		p := s.getPrincipal(r)
		datasetID := r.URL.Query().Get("datasetId")
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListCircuits(r.Context(), p.Tenant, datasetID, cursor, limit)
		if err != nil {
			writeProblem(w, 500, "List circuits failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// CircuitByIDHandler handles GET /v1/circuits/{id}
func (s *Server) CircuitByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/circuits/")
	if rest == r.URL.Path || rest == "" || strings.Contains(rest, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	c, err := s.Store.GetCircuit(r.Context(), p.Tenant, rest)
	if err != nil {
		writeError(w, "Circuit not found", err, r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodPost:
		if p.Role != "admin" {
			writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, 400, "Invalid subscription", "url and events required", r.URL.Path)
			return
		}
		if req.TenantID == "" {
			req.TenantID = p.Tenant
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, 500, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		sub.Secret = ""
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		subs, err := s.Store.ListSubscriptions(r.Context(), p.Tenant)
		if err != nil {
			writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		for i := range subs {
			subs[i].Secret = ""
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": subs})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == "" || r.Method != http.MethodDelete {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if p.Role != "admin" {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil {
		writeError(w, "Delete subscription failed", err, r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if pg, ok := s.Store.(*store.Postgres); ok {
		if err := pg.Ping(r.Context()); err != nil {
			writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
