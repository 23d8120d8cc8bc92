// Package session is the session-start surface: the client calls it after
// obtaining an identity token, and the response carries the reconciled
// account state.
package session

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/dalemusser/rosterhub/internal/app/reconcile"
	accountstore "github.com/dalemusser/rosterhub/internal/app/store/accounts"
	"github.com/dalemusser/rosterhub/internal/app/system/apiutil"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

type Handler struct {
	Engine   *reconcile.Engine
	Accounts *accountstore.Store
	Log      *zap.Logger
}

func NewHandler(engine *reconcile.Engine, accounts *accountstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Accounts: accounts, Log: logger}
}

type sessionResponse struct {
	Account         *models.Account `json:"account"`
	NewStudentIDs   []string        `json:"new_student_ids"`
	NewAdminClasses []string        `json:"new_admin_class_ids"`
}

// Start handles POST /session. It ensures the account document and runs the
// reconciliation pass for the caller's role, so every login converges any
// linking work left half-done by earlier crashes or concurrent writers.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	role := id.Role
	if role != models.RoleTeacher && role != models.RoleGuardian {
		role = models.RoleGuardian
	}

	// A session start walks the whole invite ledger for this email, so it
	// gets the long tier.
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Engine.Session(ctx, id.AccountID, id.Email, role)
	if err != nil {
		h.Log.Error("session reconciliation failed",
			zap.String("account_id", id.AccountID),
			zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "session start failed")
		return
	}

	resp := sessionResponse{
		Account:         res.Account,
		NewStudentIDs:   hexIDs(res.NewStudentIDs),
		NewAdminClasses: hexIDs(res.NewAdminClasses),
	}
	apiutil.WriteJSON(w, http.StatusOK, resp)
}

type notifyRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SetNotifications handles PUT /session/notifications, flipping the homework
// notification preference for the caller's account.
func (h *Handler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var req notifyRequest
	if err := apiutil.Decode(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Accounts.SetNotifyHomework(ctx, id.AccountID, *req.Enabled); err != nil {
		h.Log.Error("notification preference update failed",
			zap.String("account_id", id.AccountID),
			zap.Error(err))
		apiutil.WriteError(w, http.StatusInternalServerError, "update failed")
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

func hexIDs[T interface{ Hex() string }](ids []T) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
