// Package classes is the teacher-facing surface for classes and their
// co-administrators.
package classes

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/dalemusser/rosterhub/internal/app/roster"
	classstore "github.com/dalemusser/rosterhub/internal/app/store/classes"
	"github.com/dalemusser/rosterhub/internal/app/system/apiutil"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/authz"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

type Handler struct {
	Maintainer *roster.Maintainer
	Classes    *classstore.Store
	Log        *zap.Logger
}

func NewHandler(m *roster.Maintainer, classes *classstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Maintainer: m, Classes: classes, Log: logger}
}

type createClassRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// Create handles POST /classes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var req createClassRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	class, err := h.Maintainer.CreateClass(ctx, id.AccountID, req.Name)
	if err != nil {
		h.Log.Error("class create failed", zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "create failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, class)
}

// List handles GET /classes, returning the caller's owned classes.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	classes, err := h.Classes.ListByOwner(ctx, id.AccountID)
	if err != nil {
		h.Log.Error("class list failed", zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "list failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"classes": classes})
}

// Get handles GET /classes/{classID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	class, ok := h.loadManaged(w, r)
	if !ok {
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, class)
}

// Delete handles DELETE /classes/{classID}. Owner only; cascades students,
// homework, and attendance.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	class, ok := h.load(w, r)
	if !ok {
		return
	}
	if !authz.IsOwner(class, id.AccountID) {
		apiutil.WriteError(w, http.StatusForbidden, "only the owner can delete a class")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Maintainer.DeleteClass(ctx, class.ID); err != nil {
		h.Log.Error("class delete failed", zap.String("class_id", class.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type addAdminRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// AddAdmin handles POST /classes/{classID}/admins. Owner only.
func (h *Handler) AddAdmin(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	class, ok := h.load(w, r)
	if !ok {
		return
	}
	if !authz.IsOwner(class, id.AccountID) {
		apiutil.WriteError(w, http.StatusForbidden, "only the owner can manage administrators")
		return
	}

	var req addAdminRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ref, err := h.Maintainer.AddAdmin(ctx, class.ID, req.Email)
	switch {
	case err == nil:
	case errors.Is(err, classstore.ErrSelfAdmin), errors.Is(err, classstore.ErrDuplicateAdmin):
		apiutil.WriteError(w, http.StatusConflict, err.Error())
		return
	default:
		h.Log.Error("admin add failed", zap.String("class_id", class.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "add failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, ref)
}

// RemoveAdmin handles DELETE /classes/{classID}/admins/{email}. Owner only.
func (h *Handler) RemoveAdmin(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	class, ok := h.load(w, r)
	if !ok {
		return
	}
	if !authz.IsOwner(class, id.AccountID) {
		apiutil.WriteError(w, http.StatusForbidden, "only the owner can manage administrators")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	email := chi.URLParam(r, "email")
	err := h.Maintainer.RemoveAdmin(ctx, class.ID, email)
	switch {
	case err == nil:
	case errors.Is(err, classstore.ErrAdminNotFound):
		apiutil.WriteError(w, http.StatusNotFound, err.Error())
		return
	default:
		h.Log.Error("admin remove failed", zap.String("class_id", class.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "remove failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// load parses {classID} and fetches the class, writing the error response on
// failure.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.Class, bool) {
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

// loadManaged is load plus the owner-or-accepted-admin gate.
func (h *Handler) loadManaged(w http.ResponseWriter, r *http.Request) (*models.Class, bool) {
	id, _ := auth.CurrentIdentity(r)
	class, ok := h.load(w, r)
	if !ok {
		return nil, false
	}
	if !authz.CanManageClass(class, id.AccountID) {
		apiutil.WriteError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return class, true
}
