package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"jamesfarrell.me/video-moments/internal/api/middleware"
	"jamesfarrell.me/video-moments/internal/indexing"
)

// VideoHandler serves indexing jobs and stored segments.
type VideoHandler struct {
	svc *indexing.Service
}

func NewVideoHandler(svc *indexing.Service) *VideoHandler {
	return &VideoHandler{svc: svc}
}

func (h *VideoHandler) StartIndexing(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.StartIndexing(r.Context(), mux.Vars(r)["id"], middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *VideoHandler) GetIndexingStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.GetIndexingStatusByVideo(r.Context(), mux.Vars(r)["id"], middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *VideoHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.GetIndexingStatus(r.Context(), mux.Vars(r)["id"], middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *VideoHandler) DeleteIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteVideoIndex(r.Context(), mux.Vars(r)["id"], middleware.UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VideoHandler) IsIndexed(w http.ResponseWriter, r *http.Request) {
	indexed, err := h.svc.IsVideoIndexed(r.Context(), mux.Vars(r)["id"], middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"indexed": indexed})
}

func (h *VideoHandler) ListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := h.svc.GetVideoSegments(r.Context(), mux.Vars(r)["id"], middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, segments)
}
