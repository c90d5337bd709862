package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"

	"github.com/suyash-sneo/scriptstore"
)

type deleteRequest struct {
	ID string `json:"id"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type debugResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	TestValue string `json:"testValue"`
}

type debugFailure struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// handleList writes every script keyed by id. The body hash doubles as an
// ETag so polling clients can revalidate with If-None-Match.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	scripts, err := s.repo.List(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	body, err := json.Marshal(scripts)
	if err != nil {
		s.internalError(w, r, fmt.Errorf("encode scripts: %w", err))
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	script, err := s.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, script)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	script, err := s.repo.Lookup(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, script)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req scriptstore.CreateInput
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	script, err := s.repo.Create(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, script)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req scriptstore.UpdateInput
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	script, err := s.repo.Update(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, script)
}

// handleDelete takes the id from the JSON body, or from ?id= for clients
// that cannot send a DELETE body.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = r.URL.Query().Get("id")
	}
	if err := s.repo.Delete(r.Context(), req.ID); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, deleteResponse{Success: true, Message: "Script deleted successfully"})
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	res, err := s.repo.Probe(r.Context())
	if err != nil {
		s.logger.Error("store probe failed", scriptstore.F("err", err))
		body := debugFailure{Error: "Redis connection failed"}
		if s.opts.ExposeErrors {
			body.Details = err.Error()
		}
		writeJSON(w, r, http.StatusInternalServerError, body)
		return
	}
	writeJSON(w, r, http.StatusOK, debugResponse{
		Status:    "success",
		Message:   "Redis connection working",
		TestValue: res.Value,
	})
}
