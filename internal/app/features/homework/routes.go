// internal/app/features/homework/routes.go
package homework

import "github.com/go-chi/chi/v5"

// StudentRoutes returns the subrouter mounted under
// /students/{studentID}/homework.
func StudentRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	return r
}

// Routes returns the subrouter mounted under /homework.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Patch("/{homeworkID}/done", h.SetDone)
	return r
}
