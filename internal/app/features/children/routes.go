// internal/app/features/children/routes.go
package children

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /children. The caller wraps it
// with the guardian-role middleware.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{key}/homework", h.Homework)
	r.Get("/{key}/attendance", h.Attendance)
	return r
}
