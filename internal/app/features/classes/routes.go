// internal/app/features/classes/routes.go
package classes

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /classes. The caller wraps it
// with the teacher-role middleware and supplies the per-class students
// subrouter.
func Routes(h *Handler, students chi.Router) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{classID}", h.Get)
	r.Delete("/{classID}", h.Delete)
	r.Post("/{classID}/admins", h.AddAdmin)
	r.Delete("/{classID}/admins/{email}", h.RemoveAdmin)
	r.Mount("/{classID}/students", students)
	return r
}
