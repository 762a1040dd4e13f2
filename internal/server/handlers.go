package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/omnistor/omnistor/pkg/executor"
	"github.com/omnistor/omnistor/pkg/plan"
	"github.com/omnistor/omnistor/pkg/provider"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, provider.OK(map[string]string{"status": "ok"}))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, provider.OK(map[string]string{
		"version": s.version,
		"backend": s.p.Scheme(),
	}))
}

func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	caps := s.p.Capabilities()
	writeJSON(w, http.StatusOK, provider.OK(map[string]any{
		"backend":      s.p.Scheme(),
		"capabilities": strings.Split(caps.String(), ","),
	}))
}

// listResponse is the page shape for entry listings.
type listResponse struct {
	Entries           []provider.Entry `json:"entries"`
	ContinuationToken string           `json:"continuation_token,omitempty"`
	IsTruncated       bool             `json:"is_truncated"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := provider.ListOptions{
		Recursive:         q.Get("recursive") == "true",
		ContinuationToken: q.Get("token"),
	}
	if raw := q.Get("max"); raw != "" {
		max, err := strconv.Atoi(raw)
		if err != nil || max < 0 {
			writeFailure(w, http.StatusBadRequest, errBadRequest("max must be a non-negative integer"))
			return
		}
		opts.MaxEntries = max
	}

	res, err := s.p.List(r.Context(), q.Get("path"), opts)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, provider.OK(listResponse{
		Entries:           res.Entries,
		ContinuationToken: res.ContinuationToken,
		IsTruncated:       res.IsTruncated,
	}))
}

func (s *Server) handleStat(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeFailure(w, http.StatusBadRequest, errBadRequest("path is required"))
		return
	}

	entry, err := s.p.Stat(r.Context(), path)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, provider.OK(*entry))
}

// planRequest carries the original and edited snapshots to diff.
type planRequest struct {
	Original []provider.Entry `json:"original"`
	Edited   []provider.Entry `json:"edited"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, errBadRequest("invalid request body"))
		return
	}

	changes := plan.DetectChanges(req.Original, req.Edited)
	writeJSON(w, http.StatusOK, provider.OK(plan.Build(changes)))
}

// applyRequest carries the confirmed operations to execute.
type applyRequest struct {
	Operations []plan.PendingOperation `json:"operations"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, errBadRequest("invalid request body"))
		return
	}
	if len(req.Operations) == 0 {
		writeFailure(w, http.StatusBadRequest, errBadRequest("operations must not be empty"))
		return
	}

	exec := executor.New(s.p, s.logger).WithTransferOptions(s.opts)
	res, err := exec.Execute(r.Context(), req.Operations, nil)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.logger.Info("batch applied",
		zap.Int("success", res.SuccessCount),
		zap.Int("failures", res.FailureCount),
		zap.Bool("cancelled", res.Cancelled))
	writeJSON(w, http.StatusOK, provider.OK(*res))
}
