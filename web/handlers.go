package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"f0oster/zbxsync/database"
)

// Response types for JSON serialization

type RunResponse struct {
	ID         string `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Created    int    `json:"created"`
	Deleted    int    `json:"deleted"`
	Updated    int    `json:"updated"`
	Skipped    int    `json:"skipped"`
	DryRun     bool   `json:"dry_run"`
}

type RunListResponse struct {
	Runs   []RunResponse `json:"runs"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type RunDetailResponse struct {
	RunResponse
	Changes []ChangeResponse `json:"changes"`
}

type ChangeResponse struct {
	ID       string `json:"id"`
	HostName string `json:"host_name"`
	Action   string `json:"action"`
	Category string `json:"category,omitempty"`
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
	At       string `json:"at"`
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func runResponse(run database.SyncRun) RunResponse {
	return RunResponse{
		ID:         run.RunID.String(),
		StartedAt:  formatTimestamp(run.StartedAt),
		FinishedAt: formatTimestamp(run.FinishedAt),
		Created:    run.Created,
		Deleted:    run.Deleted,
		Updated:    run.Updated,
		Skipped:    run.Skipped,
		DryRun:     run.DryRun,
	}
}

func changeResponses(changes []database.HostChange) []ChangeResponse {
	out := make([]ChangeResponse, 0, len(changes))
	for _, ch := range changes {
		out = append(out, ChangeResponse{
			ID:       ch.ChangeID.String(),
			HostName: ch.HostName,
			Action:   ch.Action,
			Category: ch.Category,
			OldValue: ch.OldValue,
			NewValue: ch.NewValue,
			At:       formatTimestamp(ch.At),
		})
	}
	return out
}

// Handlers

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	limit := 50
	offset := 0
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := q.Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	rows, err := s.history.ListRuns(ctx, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	runs := make([]RunResponse, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, runResponse(row))
	}

	writeJSON(w, http.StatusOK, RunListResponse{
		Runs:   runs,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	run, err := s.history.GetRun(ctx, id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Run not found")
		return
	}

	writeJSON(w, http.StatusOK, RunDetailResponse{
		RunResponse: runResponse(run),
		Changes:     changeResponses(run.Changes),
	})
}

func (s *Server) handleListRunChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	changes, err := s.history.ListRunChanges(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list changes")
		return
	}

	writeJSON(w, http.StatusOK, changeResponses(changes))
}
