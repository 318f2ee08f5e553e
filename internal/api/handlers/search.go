package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"jamesfarrell.me/video-moments/internal/api/middleware"
	"jamesfarrell.me/video-moments/internal/search"
	"jamesfarrell.me/video-moments/internal/storage/models"
)

type SearchHandler struct {
	engine *search.Engine
}

func NewSearchHandler(engine *search.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.engine.SearchVideo(r.Context(), mux.Vars(r)["id"], middleware.UserID(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SearchHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	terms, err := h.engine.GetSearchSuggestions(r.Context(), mux.Vars(r)["id"], middleware.UserID(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": terms})
}

func (h *SearchHandler) Popular(w http.ResponseWriter, r *http.Request) {
	terms, err := h.engine.GetPopularSearchTerms(r.Context(), mux.Vars(r)["id"], middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"terms": terms})
}

func (h *SearchHandler) SimilarSegments(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	vars := mux.Vars(r)
	similar, err := h.engine.FindSimilarSegments(r.Context(), vars["id"], middleware.UserID(r.Context()), vars["segmentId"], limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, similar)
}
