// Package attendance is the teacher-facing surface for attendance records.
package attendance

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	attendancestore "github.com/dalemusser/rosterhub/internal/app/store/attendance"
	classstore "github.com/dalemusser/rosterhub/internal/app/store/classes"
	studentstore "github.com/dalemusser/rosterhub/internal/app/store/students"
	"github.com/dalemusser/rosterhub/internal/app/system/apiutil"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/authz"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

type Handler struct {
	Attendance *attendancestore.Store
	Students   *studentstore.Store
	Classes    *classstore.Store
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Attendance: attendancestore.New(db),
		Students:   studentstore.New(db),
		Classes:    classstore.New(db),
		Log:        logger,
	}
}

type createRequest struct {
	Date   time.Time `json:"date" validate:"required"`
	Status string    `json:"status" validate:"required,oneof=present absent late"`
	Note   string    `json:"note" validate:"max=1000"`
}

// Create handles POST /students/{studentID}/attendance.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	st, ok := h.loadManagedStudent(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rec, err := h.Attendance.Create(ctx, models.AttendanceRecord{
		StudentID: st.ID,
		ClassID:   st.ClassID,
		Date:      req.Date.UTC().Truncate(24 * time.Hour),
		Status:    req.Status,
		Note:      req.Note,
		CreatedBy: id.AccountID,
	})
	if err != nil {
		h.Log.Error("attendance create failed", zap.String("student_id", st.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "create failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, rec)
}

// List handles GET /students/{studentID}/attendance.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadManagedStudent(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	records, err := h.Attendance.ListByStudent(ctx, st.ID)
	if err != nil {
		h.Log.Error("attendance list failed", zap.String("student_id", st.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "list failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"attendance": records})
}

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
		h.Log.Error("class load failed", zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "load failed")
		return nil, false
	}
	if !authz.CanManageClass(class, id.AccountID) {
		apiutil.WriteError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return st, true
}
