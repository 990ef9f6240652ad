// Package navigation exposes the prefetch manager over HTTP.
package navigation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/prefetch/core/model"
	"github.com/kilianp07/prefetch/core/prefetch"
)

// Service is the subset of *prefetch.Manager used by the handlers.
type Service interface {
	Track(eventType string, state model.State)
	AddResource(url string, meta *model.ResourceMeta) model.ResourceEntry
	Predictions() []model.Prediction
	Resources() []model.ResourceEntry
	Current() (model.State, bool)
	Optimize(ctx context.Context) (prefetch.Outcome, error)
}

// Register mounts every navigation route on mux.
func Register(mux *http.ServeMux, svc Service) {
	mux.Handle("/api/track", NewTrackHandler(svc))
	mux.Handle("/api/resources", NewResourcesHandler(svc))
	mux.Handle("/api/predictions", NewPredictionsHandler(svc))
	mux.Handle("/api/optimize", NewOptimizeHandler(svc))
}

type trackRequest struct {
	EventType string `json:"event_type"`
	State     string `json:"state"`
}

// NewTrackHandler records a navigation event via POST /api/track.
func NewTrackHandler(svc Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req trackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.State == "" {
			http.Error(w, "state is required", http.StatusBadRequest)
			return
		}
		if req.EventType == "" {
			req.EventType = "navigate"
		}
		svc.Track(req.EventType, model.State(req.State))
		w.WriteHeader(http.StatusAccepted)
	})
}

type resourceRequest struct {
	URL     string  `json:"url"`
	Size    float64 `json:"size"`
	Latency float64 `json:"latency"`
}

// NewResourcesHandler registers a resource via POST /api/resources and lists
// the registry via GET /api/resources.
func NewResourcesHandler(svc Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, svc.Resources())
		case http.MethodPost:
			var req resourceRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
				return
			}
			if req.URL == "" {
				http.Error(w, "url is required", http.StatusBadRequest)
				return
			}
			e := svc.AddResource(req.URL, &model.ResourceMeta{Size: req.Size, Latency: req.Latency})
			writeJSON(w, http.StatusCreated, e)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

type predictionsResponse struct {
	Current     string             `json:"current,omitempty"`
	Predictions []model.Prediction `json:"predictions"`
}

// NewPredictionsHandler exposes the next-state distribution via GET /api/predictions.
func NewPredictionsHandler(svc Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cur, _ := svc.Current()
		preds := svc.Predictions()
		if preds == nil {
			preds = []model.Prediction{}
		}
		writeJSON(w, http.StatusOK, predictionsResponse{Current: string(cur), Predictions: preds})
	})
}

type fetchResponse struct {
	URL       string  `json:"url"`
	Score     float64 `json:"score"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

type outcomeResponse struct {
	RunID       string                  `json:"run_id"`
	Status      string                  `json:"status"`
	State       string                  `json:"state,omitempty"`
	Predictions []model.Prediction      `json:"predictions"`
	Candidates  []model.ScoredCandidate `json:"candidates"`
	Fetches     []fetchResponse         `json:"fetches"`
	DurationMS  float64                 `json:"duration_ms"`
}

// NewOptimizeHandler runs one optimisation via POST /api/optimize and
// returns once every admitted fetch has settled.
func NewOptimizeHandler(svc Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		out, err := svc.Optimize(r.Context())
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, prefetch.ErrMalformedCandidate) {
				code = http.StatusUnprocessableEntity
			}
			http.Error(w, err.Error(), code)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(out))
	})
}

func toResponse(out prefetch.Outcome) outcomeResponse {
	resp := outcomeResponse{
		RunID:       out.RunID,
		Status:      string(out.Status),
		State:       string(out.State),
		Predictions: out.Predictions,
		Candidates:  out.Candidates,
		Fetches:     make([]fetchResponse, 0, len(out.Results)),
		DurationMS:  float64(out.Finished.Sub(out.Started)) / float64(time.Millisecond),
	}
	if resp.Predictions == nil {
		resp.Predictions = []model.Prediction{}
	}
	if resp.Candidates == nil {
		resp.Candidates = []model.ScoredCandidate{}
	}
	for _, r := range out.Results {
		fr := fetchResponse{
			URL:       r.Candidate.URL,
			Score:     r.Candidate.Score,
			Success:   r.OK(),
			LatencyMS: float64(r.Latency) / float64(time.Millisecond),
		}
		if r.Err != nil {
			fr.Error = r.Err.Error()
		}
		resp.Fetches = append(resp.Fetches, fr)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
