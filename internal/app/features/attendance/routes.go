// internal/app/features/attendance/routes.go
package attendance

import "github.com/go-chi/chi/v5"

// StudentRoutes returns the subrouter mounted under
// /students/{studentID}/attendance.
func StudentRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	return r
}
