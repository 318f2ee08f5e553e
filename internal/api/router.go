package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"jamesfarrell.me/video-moments/internal/api/handlers"
	"jamesfarrell.me/video-moments/internal/api/middleware"
	"jamesfarrell.me/video-moments/internal/indexing"
	"jamesfarrell.me/video-moments/internal/search"
)

func NewRouter(idx *indexing.Service, engine *search.Engine, apiKey string) http.Handler {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	// Protected routes
	protected := r.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(apiKey))
	protected.Use(middleware.UserMiddleware)

	videoHandler := handlers.NewVideoHandler(idx)
	searchHandler := handlers.NewSearchHandler(engine)

	protected.HandleFunc("/jobs/{id}", videoHandler.GetJob).Methods(http.MethodGet)

	// Video routes
	videos := protected.PathPrefix("/videos/{id}").Subrouter()
	videos.HandleFunc("/index", videoHandler.StartIndexing).Methods(http.MethodPost)
	videos.HandleFunc("/index", videoHandler.GetIndexingStatus).Methods(http.MethodGet)
	videos.HandleFunc("/index", videoHandler.DeleteIndex).Methods(http.MethodDelete)
	videos.HandleFunc("/indexed", videoHandler.IsIndexed).Methods(http.MethodGet)
	videos.HandleFunc("/segments", videoHandler.ListSegments).Methods(http.MethodGet)

	videos.HandleFunc("/segments/{segmentId}/similar", searchHandler.SimilarSegments).Methods(http.MethodGet)
	videos.HandleFunc("/search", searchHandler.Search).Methods(http.MethodPost)
	videos.HandleFunc("/suggestions", searchHandler.Suggestions).Methods(http.MethodGet)
	videos.HandleFunc("/popular", searchHandler.Popular).Methods(http.MethodGet)

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
