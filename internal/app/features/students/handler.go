// Package students is the teacher-facing surface for roster entries and
// their guardians, including the lookup-and-clone flow for enrolling a
// guardian's existing child into another class.
package students

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/dalemusser/rosterhub/internal/app/roster"
	classstore "github.com/dalemusser/rosterhub/internal/app/store/classes"
	studentstore "github.com/dalemusser/rosterhub/internal/app/store/students"
	"github.com/dalemusser/rosterhub/internal/app/system/apiutil"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/authz"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

type Handler struct {
	Maintainer *roster.Maintainer
	Students   *studentstore.Store
	Classes    *classstore.Store
	Log        *zap.Logger
}

func NewHandler(m *roster.Maintainer, students *studentstore.Store, classes *classstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Maintainer: m, Students: students, Classes: classes, Log: logger}
}

type guardianInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
}

type createStudentRequest struct {
	FirstName string          `json:"first_name" validate:"required,max=100"`
	LastName  string          `json:"last_name" validate:"required,max=100"`
	Guardians []guardianInput `json:"guardians" validate:"max=2,dive"`
}

// Create handles POST /classes/{classID}/students.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	class, ok := h.loadClass(w, r)
	if !ok {
		return
	}
	if !authz.CanManageClass(class, id.AccountID) {
		apiutil.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req createStudentRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	refs := make([]models.GuardianRef, 0, len(req.Guardians))
	for _, g := range req.Guardians {
		refs = append(refs, models.GuardianRef{
			FirstName: g.FirstName,
			LastName:  g.LastName,
			Email:     g.Email,
			AddedAt:   time.Now().UTC(),
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	st, err := h.Maintainer.CreateStudent(ctx, class.ID, class.OwnerID, req.FirstName, req.LastName, refs)
	switch {
	case err == nil:
	case errors.Is(err, roster.ErrTooManyGuardians), errors.Is(err, studentstore.ErrDuplicateGuardian):
		apiutil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	default:
		h.Log.Error("student create failed", zap.String("class_id", class.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "create failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, st)
}

// List handles GET /classes/{classID}/students.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	class, ok := h.loadClass(w, r)
	if !ok {
		return
	}
	if !authz.CanManageClass(class, id.AccountID) {
		apiutil.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	students, err := h.Students.ListByClass(ctx, class.ID)
	if err != nil {
		h.Log.Error("student list failed", zap.String("class_id", class.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "list failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"students": students})
}

// Delete handles DELETE /students/{studentID}, cascading homework and
// attendance and decrementing the class counter.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadManagedStudent(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Maintainer.DeleteStudent(ctx, st.ID); err != nil {
		h.Log.Error("student delete failed", zap.String("student_id", st.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddGuardian handles POST /students/{studentID}/guardians.
func (h *Handler) AddGuardian(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadManagedStudent(w, r)
	if !ok {
		return
	}

	var req guardianInput
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ref, err := h.Maintainer.AddGuardian(ctx, st.ID, models.GuardianRef{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	switch {
	case err == nil:
	case errors.Is(err, studentstore.ErrDuplicateGuardian), errors.Is(err, studentstore.ErrGuardianLimit):
		apiutil.WriteError(w, http.StatusConflict, err.Error())
		return
	default:
		h.Log.Error("guardian add failed", zap.String("student_id", st.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "add failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, ref)
}

// RemoveGuardian handles DELETE /students/{studentID}/guardians/{email}.
func (h *Handler) RemoveGuardian(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadManagedStudent(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := h.Maintainer.RemoveGuardian(ctx, st.ID, chi.URLParam(r, "email"))
	switch {
	case err == nil:
	case errors.Is(err, studentstore.ErrGuardianNotFound):
		apiutil.WriteError(w, http.StatusNotFound, err.Error())
		return
	default:
		h.Log.Error("guardian remove failed", zap.String("student_id", st.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "remove failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// Lookup handles GET /students/lookup?guardian_email=…, returning every
// roster entry carrying that guardian email. Feeds the clone flow: the
// teacher picks one of these entries to enroll into their own class.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("guardian_email")
	if email == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "guardian_email is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	students, err := h.Students.FindByGuardianEmail(ctx, email)
	if err != nil {
		h.Log.Error("guardian lookup failed", zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"students": students})
}

type cloneRequest struct {
	ClassID string `json:"class_id" validate:"required,len=24,hexadecimal"`
}

// Clone handles POST /students/{studentID}/clone, enrolling an existing
// child into the caller's class by cloning the entry.
func (h *Handler) Clone(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	studentID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "studentID"))
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	var req cloneRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	targetID, err := primitive.ObjectIDFromHex(req.ClassID)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	// The caller must manage the target class; the source entry may belong
	// to any teacher.
	target, err := h.Classes.GetByID(ctx, targetID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			apiutil.WriteError(w, http.StatusNotFound, "class not found")
		} else {
			h.Log.Error("class load failed", zap.Error(err))
			apiutil.WriteError(w, http.StatusInternalServerError, "load failed")
		}
		return
	}
	if !authz.CanManageClass(target, id.AccountID) {
		apiutil.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}

	clone, err := h.Maintainer.CloneIntoClass(ctx, studentID, targetID, target.OwnerID)
	switch {
	case err == nil:
	case errors.Is(err, roster.ErrAlreadyEnrolled):
		apiutil.WriteError(w, http.StatusConflict, err.Error())
		return
	case err == mongo.ErrNoDocuments:
		apiutil.WriteError(w, http.StatusNotFound, "student not found")
		return
	default:
		h.Log.Error("clone failed", zap.String("student_id", studentID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "clone failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, clone)
}

func (h *Handler) loadClass(w http.ResponseWriter, r *http.Request) (*models.Class, bool) {
	classID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "classID"))
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid class id")
		return nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	class, err := h.Classes.GetByID(ctx, classID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			apiutil.WriteError(w, http.StatusNotFound, "class not found")
		} else {
			h.Log.Error("class load failed", zap.Error(err))
			apiutil.WriteError(w, http.StatusInternalServerError, "load failed")
		}
		return nil, false
	}
	return class, true
}

// loadManagedStudent parses {studentID}, loads the student and its class, and
// gates on the owner-or-accepted-admin check.
func (h *Handler) loadManagedStudent(w http.ResponseWriter, r *http.Request) (*models.Student, bool) {
	id, _ := auth.CurrentIdentity(r)

	studentID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "studentID"))
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid student id")
		return nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st, err := h.Students.GetByID(ctx, studentID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			apiutil.WriteError(w, http.StatusNotFound, "student not found")
		} else {
			h.Log.Error("student load failed", zap.Error(err))
			apiutil.WriteError(w, http.StatusInternalServerError, "load failed")
		}
		return nil, false
	}

	class, err := h.Classes.GetByID(ctx, st.ClassID)
	if err != nil {
		h.Log.Error("student class load failed", zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "load failed")
		return nil, false
	}
	if !authz.CanManageClass(class, id.AccountID) {
		apiutil.WriteError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return st, true
}
