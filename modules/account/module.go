// Package account serves the login page, the find-or-provision login flow,
// the account page and the administrative user CRUD.
package account

import (
	"context"
	"embed"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/planfence/planfence/pkg/session"
	"github.com/planfence/planfence/pkg/view"
	"github.com/planfence/planfence/svc/billing"
	"github.com/planfence/planfence/svc/user"
)

//go:embed templates/*.html
var templatesFS embed.FS

// customerGateway is the slice of the billing gateway the login flow needs.
type customerGateway interface {
	CreateCustomer(ctx context.Context, email string) (*billing.Customer, error)
	GetCustomer(ctx context.Context, billingID string) (*billing.Customer, error)
}

// Module bundles the account handlers and their collaborators.
type Module struct {
	store    user.Store
	gateway  customerGateway
	sessions *session.Manager
	views    *view.Renderer
	log      *slog.Logger
}

func NewModule(store user.Store, gateway customerGateway, sessions *session.Manager, log *slog.Logger) *Module {
	return &Module{
		store:    store,
		gateway:  gateway,
		sessions: sessions,
		views:    view.New(templatesFS, log, "templates/*.html"),
		log:      log,
	}
}

// Register mounts the account routes on the router.
func (m *Module) Register(r chi.Router) {
	r.Get("/", m.handleLoginPage)
	r.Post("/login", m.handleLogin)
	r.Post("/logout", m.handleLogout)
	r.Get("/account", m.handleAccountPage)

	r.Route("/users", func(r chi.Router) {
		r.Use(user.RequireRole(user.RoleAdmin))
		r.Get("/", m.handleListUsers)
		r.Get("/{id}", m.handleGetUser)
		r.Put("/{id}", m.handleUpdateUser)
		r.Delete("/{id}", m.handleDeleteUser)
	})
}
