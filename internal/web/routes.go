package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) routes(r chi.Router, uploadsDir string) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/photos", s.handlers.Upload)
		r.Get("/photos", s.handlers.ListPhotos)
		r.Get("/photos/status", s.handlers.Status)
		r.Get("/photos/{photoID}", s.handlers.GetPhoto)
		r.Post("/photos/{photoID}/reprocess", s.handlers.Reprocess)

		r.Post("/search", s.handlers.Search)

		r.Get("/profiles", s.handlers.ListProfiles)
		r.Patch("/profiles/{personID}/name", s.handlers.RenameProfile)
	})

	if uploadsDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}
}
