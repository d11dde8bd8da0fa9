// Package server exposes the scanner session over HTTP for browser
// front-ends.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the API routes of s.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthcheck", s.HealthHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", s.GetSessionHandler).Methods("GET")
	api.HandleFunc("/session/{action:start|stop|switch|reset|hide|dismiss}", s.SessionActionHandler).Methods("POST")
	api.HandleFunc("/cameras", s.GetCamerasHandler).Methods("GET")
	api.HandleFunc("/download", s.ServeFileHandler).Methods("GET")
	api.HandleFunc("/download", s.DownloadHandler).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "not found", http.StatusNotFound)
	})
	return r
}
