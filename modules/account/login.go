package account

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/planfence/planfence/core"
	"github.com/planfence/planfence/pkg/binder"
	"github.com/planfence/planfence/svc/user"
)

type loginRequest struct {
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Phone     string `json:"phone" form:"phone"`
	Company   string `json:"company" form:"company"`
}

func (req loginRequest) Validate() error {
	verr := core.ValidationError{}
	if req.Email == "" {
		verr.Add("email", "email is required")
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		verr.Add("email", "invalid email address")
	}
	if req.Password == "" {
		verr.Add("password", "password is required")
	}
	if len(verr) > 0 {
		return verr
	}
	return nil
}

func (m *Module) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := user.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/account", http.StatusSeeOther)
		return
	}
	m.views.Render(w, http.StatusOK, "login.html", nil)
}

// handleLogin is a find-or-provision flow: an unseen email registers a new
// billing customer and local account, a known email signs in. Both paths end
// in a fresh authenticated session.
func (m *Module) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := binder.Bind(r, &req); err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		core.JSONError(w, err)
		return
	}

	u, err := m.store.GetByEmail(r.Context(), req.Email)
	switch {
	case err == nil:
		if err := m.signIn(r, u, req.Password); err != nil {
			core.JSONError(w, err)
			return
		}
	case errors.Is(err, user.ErrUserNotFound):
		if err := m.provision(r, req); err != nil {
			core.JSONError(w, err)
			return
		}
	default:
		m.log.ErrorContext(r.Context(), "login lookup failed", slog.Any("error", err))
		core.JSONError(w, core.ErrInternalServerError)
		return
	}

	if err := m.sessions.Authenticate(r.Context(), w, r, req.Email); err != nil {
		m.log.ErrorContext(r.Context(), "failed to authenticate session", slog.Any("error", err))
		core.JSONError(w, core.ErrInternalServerError)
		return
	}

	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

// signIn verifies the credential and persists a lapsed trial downgrade so the
// stored record matches what every plan gate would already decide.
func (m *Module) signIn(r *http.Request, u *user.User, password string) error {
	if err := user.CheckPassword(u.PasswordHash, password); err != nil {
		return core.ErrUnauthorized
	}

	if u.Plan != user.PlanNone && u.IsExpired(time.Now().UTC()) {
		if err := m.store.ClearTrialByEmail(r.Context(), u.Email); err != nil {
			m.log.ErrorContext(r.Context(), "failed to persist trial downgrade",
				slog.String("email", u.Email),
				slog.Any("error", err))
		}
	}

	// Refresh from the provider to catch a customer deleted on their side.
	if u.BillingID != "" {
		if _, err := m.gateway.GetCustomer(r.Context(), u.BillingID); err != nil {
			m.log.WarnContext(r.Context(), "billing customer lookup failed",
				slog.String("billing_id", u.BillingID),
				slog.Any("error", err))
		}
	}
	return nil
}

// provision registers the billing customer first so a local account never
// exists without a billing ID.
func (m *Module) provision(r *http.Request, req loginRequest) error {
	// Hash before touching the provider so a rejected password does not
	// leave an orphaned billing customer behind.
	hash, err := user.HashPassword(req.Password)
	if err != nil {
		verr := core.ValidationError{}
		verr.Add("password", "password must be at least 8 characters")
		return verr
	}

	customer, err := m.gateway.CreateCustomer(r.Context(), req.Email)
	if err != nil {
		m.log.ErrorContext(r.Context(), "failed to create billing customer",
			slog.String("email", req.Email),
			slog.Any("error", err))
		return core.NewHTTPError(http.StatusBadRequest, "billing_customer_failed")
	}

	u := &user.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Phone:        req.Phone,
		Company:      req.Company,
		Role:         user.RoleUser,
		BillingID:    customer.ID,
		Plan:         user.PlanNone,
	}
	if err := m.store.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			// Lost a race with a concurrent signup for the same email.
			return core.ErrUnauthorized
		}
		m.log.ErrorContext(r.Context(), "failed to create user", slog.Any("error", err))
		return core.ErrInternalServerError
	}
	return nil
}

func (m *Module) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := m.sessions.Destroy(r.Context(), w, r); err != nil {
		m.log.WarnContext(r.Context(), "failed to destroy session", slog.Any("error", err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (m *Module) handleAccountPage(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	m.views.Render(w, http.StatusOK, "account.html", map[string]any{
		"User":          u,
		"EffectivePlan": u.EffectivePlan(time.Now().UTC()),
	})
}
