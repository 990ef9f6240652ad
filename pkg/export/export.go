// Package export writes prefetch admission plans in machine readable formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/prefetch/core/prefetch"
)

// PlanEntry is one scored candidate of an optimisation run.
type PlanEntry struct {
	RunID       string  `json:"run_id"`
	Status      string  `json:"status"`
	URL         string  `json:"url"`
	State       string  `json:"state"`
	Probability float64 `json:"probability"`
	Decay       float64 `json:"decay"`
	Cost        float64 `json:"cost"`
	Score       float64 `json:"score"`
	Fetched     bool    `json:"fetched"`
	Error       string  `json:"error,omitempty"`
}

// Plan flattens outcomes into one entry per scored candidate. Runs without
// candidates produce a single entry carrying only the status.
func Plan(outcomes []prefetch.Outcome) []PlanEntry {
	var entries []PlanEntry
	for _, out := range outcomes {
		if len(out.Candidates) == 0 {
			entries = append(entries, PlanEntry{RunID: out.RunID, Status: string(out.Status)})
			continue
		}
		results := make(map[string]prefetch.FetchResult, len(out.Results))
		for _, r := range out.Results {
			results[r.Candidate.URL] = r
		}
		for _, c := range out.Candidates {
			e := PlanEntry{
				RunID:       out.RunID,
				Status:      string(out.Status),
				URL:         c.URL,
				State:       string(c.State),
				Probability: c.Probability,
				Decay:       c.Decay,
				Cost:        c.Cost,
				Score:       c.Score,
			}
			if r, ok := results[c.URL]; ok {
				e.Fetched = true
				if r.Err != nil {
					e.Error = r.Err.Error()
				}
			}
			entries = append(entries, e)
		}
	}
	return entries
}

// WriteJSON writes the plan to w in JSON format.
func WriteJSON(w io.Writer, entries []PlanEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// WriteCSV writes the plan to w in CSV format with a header row.
func WriteCSV(w io.Writer, entries []PlanEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"run_id", "status", "url", "state", "probability", "decay", "cost", "score", "fetched", "error"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.RunID,
			e.Status,
			e.URL,
			e.State,
			formatFloat(e.Probability),
			formatFloat(e.Decay),
			formatFloat(e.Cost),
			formatFloat(e.Score),
			strconv.FormatBool(e.Fetched),
			e.Error,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
