package server

import (
	"net/http"

	"github.com/bobmcallan/mgnrega-portal/internal/handlers"
)

// setupRoutes builds the mux for pages, the JSON API and MCP.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	s.pageRoutes(mux)
	s.apiRoutes(mux)

	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}
	return mux
}

func (s *Server) pageRoutes(mux *http.ServeMux) {
	home := s.app.HomeHandler
	dash := s.app.DashboardHandler

	mux.Handle("/{$}", home)
	mux.HandleFunc("/select", home.Select)
	mux.HandleFunc("/locate", home.Locate)
	mux.HandleFunc("/about", s.app.PageHandler.ServePage("about.html", "about"))
	mux.Handle("/district/{code}", dash)
	mux.HandleFunc("/district/{code}/report.pdf", dash.ExportPDF)
	mux.HandleFunc("/static/", s.app.PageHandler.StaticFileHandler)
}

func (s *Server) apiRoutes(mux *http.ServeMux) {
	api := s.app.APIHandler

	mux.Handle("/api/health", s.app.HealthHandler)
	mux.Handle("/api/version", s.app.VersionHandler)
	mux.Handle("/api/upstream-health", s.app.UpstreamHealthHandler)
	mux.HandleFunc("/api/districts", api.Districts)
	mux.HandleFunc("/api/district/{code}", api.District)
	mux.HandleFunc("/api/district/{code}/summary", api.Summary)
	mux.HandleFunc("/api/district/{code}/snapshots", api.Snapshots)
	mux.HandleFunc("/api/locate", api.Locate)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "no such endpoint: "+r.URL.Path)
	})
}
