package account

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/planfence/planfence/core"
	"github.com/planfence/planfence/pkg/binder"
	"github.com/planfence/planfence/svc/user"
)

type updateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
	Role      *string `json:"role"`
}

func (m *Module) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := m.store.List(r.Context())
	if err != nil {
		m.log.ErrorContext(r.Context(), "failed to list users", slog.Any("error", err))
		core.JSONError(w, core.ErrInternalServerError)
		return
	}
	core.JSON(w, http.StatusOK, users)
}

func (m *Module) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	u, err := m.store.GetByID(r.Context(), id)
	if err != nil {
		m.respondStoreError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, u)
}

func (m *Module) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := binder.BindJSON(r, &req); err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return
	}

	fields := user.UpdateFields{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Company:   req.Company,
	}
	if req.Role != nil {
		role, err := user.ParseRole(*req.Role)
		if err != nil {
			verr := core.ValidationError{}
			verr.Add("role", "role must be admin or user")
			core.JSONError(w, verr)
			return
		}
		fields.Role = &role
	}

	u, err := m.store.Update(r.Context(), id, fields)
	if err != nil {
		m.respondStoreError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, u)
}

func (m *Module) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	if err := m.store.Delete(r.Context(), id); err != nil {
		m.respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Module) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, user.ErrUserNotFound) {
		core.JSONError(w, core.ErrNotFound)
		return
	}
	m.log.ErrorContext(r.Context(), "user store operation failed", slog.Any("error", err))
	core.JSONError(w, core.ErrInternalServerError)
}

func parseUserID(w http.ResponseWriter, r *http.Request) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return bson.ObjectID{}, false
	}
	return id, true
}
