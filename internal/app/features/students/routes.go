// internal/app/features/students/routes.go
package students

import "github.com/go-chi/chi/v5"

// ClassRoutes returns the subrouter mounted under /classes/{classID}/students.
func ClassRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	return r
}

// Routes returns the subrouter mounted under /students. The homework and
// attendance subrouters are mounted beneath /{studentID} here so the whole
// /students tree lives on one router.
func Routes(h *Handler, homework, attendance chi.Router) chi.Router {
	r := chi.NewRouter()
	r.Get("/lookup", h.Lookup)
	r.Route("/{studentID}", func(r chi.Router) {
		r.Delete("/", h.Delete)
		r.Post("/guardians", h.AddGuardian)
		r.Delete("/guardians/{email}", h.RemoveGuardian)
		r.Post("/clone", h.Clone)
		r.Mount("/homework", homework)
		r.Mount("/attendance", attendance)
	})
	return r
}
