// Package homework is the teacher-facing surface for homework records.
// Creating a record also emits a fire-and-forget notification event for the
// student's opted-in, linked guardians.
package homework

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	accountstore "github.com/dalemusser/rosterhub/internal/app/store/accounts"
	classstore "github.com/dalemusser/rosterhub/internal/app/store/classes"
	homeworkstore "github.com/dalemusser/rosterhub/internal/app/store/homework"
	studentstore "github.com/dalemusser/rosterhub/internal/app/store/students"
	"github.com/dalemusser/rosterhub/internal/app/system/apiutil"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/authz"
	"github.com/dalemusser/rosterhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/rosterhub/internal/app/system/notify"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

type Handler struct {
	Homework *homeworkstore.Store
	Students *studentstore.Store
	Classes  *classstore.Store
	Accounts *accountstore.Store
	Notifier notify.Notifier
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, notifier notify.Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		Homework: homeworkstore.New(db),
		Students: studentstore.New(db),
		Classes:  classstore.New(db),
		Accounts: accountstore.New(db),
		Notifier: notifier,
		Log:      logger,
	}
}

type createRequest struct {
	Title        string     `json:"title" validate:"required,max=300"`
	Instructions string     `json:"instructions" validate:"max=20000"`
	DueDate      *time.Time `json:"due_date"`
}

// Create handles POST /students/{studentID}/homework. Instructions are
// sanitized before storage; the notification publish happens after the write
// and can never fail it.
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

	hw, err := h.Homework.Create(ctx, models.HomeworkRecord{
		StudentID:    st.ID,
		ClassID:      st.ClassID,
		Title:        req.Title,
		Instructions: htmlsanitize.Sanitize(req.Instructions),
		DueDate:      req.DueDate,
		CreatedBy:    id.AccountID,
	})
	if err != nil {
		h.Log.Error("homework create failed", zap.String("student_id", st.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "create failed")
		return
	}

	h.publish(r, st, hw)
	apiutil.WriteJSON(w, http.StatusCreated, hw)
}

// List handles GET /students/{studentID}/homework.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadManagedStudent(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	records, err := h.Homework.ListByStudent(ctx, st.ID)
	if err != nil {
		h.Log.Error("homework list failed", zap.String("student_id", st.ID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "list failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"homework": records})
}

type doneRequest struct {
	Done *bool `json:"done" validate:"required"`
}

// SetDone handles PATCH /homework/{homeworkID}/done. The record's class is
// resolved and gated like every other mutation: only the owner or an
// accepted co-administrator may flip the flag.
func (h *Handler) SetDone(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	hwID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "homeworkID"))
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid homework id")
		return
	}

	var req doneRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	hw, err := h.Homework.GetByID(ctx, hwID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			apiutil.WriteError(w, http.StatusNotFound, "homework not found")
		} else {
			h.Log.Error("homework load failed", zap.Error(err))
			apiutil.WriteError(w, http.StatusInternalServerError, "load failed")
		}
		return
	}
	class, err := h.Classes.GetByID(ctx, hw.ClassID)
	if err != nil {
		h.Log.Error("homework class load failed", zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "load failed")
		return
	}
	if !authz.CanManageClass(class, id.AccountID) {
		apiutil.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.Homework.SetDone(ctx, hwID, *req.Done); err != nil {
		h.Log.Error("homework done flip failed", zap.String("homework_id", hwID.Hex()), zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "update failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]bool{"done": *req.Done})
}

// publish builds the notification target list from the student's linked,
// opted-in guardians and hands the event to the notifier.
func (h *Handler) publish(r *http.Request, st *models.Student, hw models.HomeworkRecord) {
	var linked []string
	for _, g := range st.Guardians {
		if g.Status == models.StatusAccepted && g.AccountID != "" {
			linked = append(linked, g.AccountID)
		}
	}
	if len(linked) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	targets, err := h.Accounts.FilterNotifiable(ctx, linked)
	if err != nil {
		h.Log.Warn("notifiable filter failed", zap.Error(err))
		return
	}
	h.Notifier.HomeworkCreated(ctx,
		notify.NewEvent(st.FirstName+" "+st.LastName, hw.Title, targets))
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
