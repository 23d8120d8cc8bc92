// Package children is the guardian-facing read surface. It renders the
// guardian's linked roster entries as display identities (one per distinct
// child name) and scopes homework/attendance reads to an identity's
// underlying entries. Everything here is read-only: the grouping is never
// persisted and never feeds a write path.
package children

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	accountstore "github.com/dalemusser/rosterhub/internal/app/store/accounts"
	attendancestore "github.com/dalemusser/rosterhub/internal/app/store/attendance"
	classstore "github.com/dalemusser/rosterhub/internal/app/store/classes"
	homeworkstore "github.com/dalemusser/rosterhub/internal/app/store/homework"
	studentstore "github.com/dalemusser/rosterhub/internal/app/store/students"
	"github.com/dalemusser/rosterhub/internal/app/system/apiutil"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/dedup"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

type Handler struct {
	Accounts        *accountstore.Store
	Students        *studentstore.Store
	Classes         *classstore.Store
	HomeworkStore   *homeworkstore.Store
	AttendanceStore *attendancestore.Store
	Log             *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:        accountstore.New(db),
		Students:        studentstore.New(db),
		Classes:         classstore.New(db),
		HomeworkStore:   homeworkstore.New(db),
		AttendanceStore: attendancestore.New(db),
		Log:             logger,
	}
}

// List handles GET /children: the guardian's linked entries grouped into
// display identities, with the classes each identity spans.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	students, ok := h.linkedStudents(w, r)
	if !ok {
		return
	}

	children := dedup.Group(students)
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"children": children})
}

// Homework handles GET /children/{key}/homework: all homework across the
// identity's roster entries, newest first.
func (h *Handler) Homework(w http.ResponseWriter, r *http.Request) {
	students, ok := h.linkedStudents(w, r)
	if !ok {
		return
	}

	ids := dedup.ResolveStudentIDs(students, chi.URLParam(r, "key"))
	if len(ids) == 0 {
		apiutil.WriteError(w, http.StatusNotFound, "unknown child")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	records, err := h.HomeworkStore.ListByStudents(ctx, ids)
	if err != nil {
		h.Log.Error("child homework list failed", zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "list failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"homework": records})
}

// Attendance handles GET /children/{key}/attendance.
func (h *Handler) Attendance(w http.ResponseWriter, r *http.Request) {
	students, ok := h.linkedStudents(w, r)
	if !ok {
		return
	}

	ids := dedup.ResolveStudentIDs(students, chi.URLParam(r, "key"))
	if len(ids) == 0 {
		apiutil.WriteError(w, http.StatusNotFound, "unknown child")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	records, err := h.AttendanceStore.ListByStudents(ctx, ids)
	if err != nil {
		h.Log.Error("child attendance list failed", zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "list failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"attendance": records})
}

// linkedStudents loads the caller's account and resolves its linked student
// ids to documents. Ids whose documents are gone (deleted since linking) are
// silently absent; the linked set is repaired lazily by reconciliation, not
// here.
func (h *Handler) linkedStudents(w http.ResponseWriter, r *http.Request) ([]models.Student, bool) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	acct, err := h.Accounts.GetByID(ctx, id.AccountID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// No session has ever been started for this identity.
			apiutil.WriteJSON(w, http.StatusOK, map[string]any{"children": []any{}})
			return nil, false
		}
		h.Log.Error("account load failed", zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "load failed")
		return nil, false
	}

	students, err := h.Students.ListByIDs(ctx, acct.StudentIDs)
	if err != nil {
		h.Log.Error("linked student load failed", zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "load failed")
		return nil, false
	}
	return students, true
}
