// Package pages serves the plan-gated content pages. Each page is gated by
// the plan authorization middleware; the gate recomputes the effective plan
// on every request so a lapsed trial is shut out immediately.
package pages

import (
	"embed"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/planfence/planfence/pkg/view"
	"github.com/planfence/planfence/svc/user"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Module struct {
	views *view.Renderer
}

func NewModule(log *slog.Logger) *Module {
	return &Module{views: view.New(templatesFS, log, "templates/*.html")}
}

// Register mounts one route per tier, each behind its own gate. Denied
// requests are redirected to the entry page.
func (m *Module) Register(r chi.Router) {
	r.With(user.RequirePlan(user.PlanNone, "/")).Get("/none", m.page("none"))
	r.With(user.RequirePlan(user.PlanBasic, "/")).Get("/basic", m.page("basic"))
	r.With(user.RequirePlan(user.PlanPro, "/")).Get("/pro", m.page("pro"))
}

func (m *Module) page(tier string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, _ := user.FromContext(r.Context())
		m.views.Render(w, http.StatusOK, tier+".html", map[string]any{
			"User":          u,
			"EffectivePlan": u.EffectivePlan(time.Now().UTC()),
		})
	}
}
