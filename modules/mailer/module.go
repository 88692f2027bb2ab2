// Package mailer exposes the outbound email endpoint.
package mailer

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planfence/planfence/core"
	"github.com/planfence/planfence/pkg/binder"
	"github.com/planfence/planfence/pkg/email"
	"github.com/planfence/planfence/svc/user"
)

type Module struct {
	sender email.EmailSender
	log    *slog.Logger
}

func NewModule(sender email.EmailSender, log *slog.Logger) *Module {
	return &Module{sender: sender, log: log}
}

func (m *Module) Register(r chi.Router) {
	r.With(user.RequireAuth()).Post("/send-email", m.handleSendEmail)
}

type sendEmailRequest struct {
	To      string `json:"to" form:"to"`
	Subject string `json:"subject" form:"subject"`
	Body    string `json:"body" form:"body"`
}

func (m *Module) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := binder.Bind(r, &req); err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return
	}

	params := email.SendEmailParams{
		SendTo:   req.To,
		Subject:  req.Subject,
		BodyHTML: req.Body,
	}
	if err := params.Validate(); err != nil {
		verr := core.ValidationError{}
		verr.Add("email", err.Error())
		core.JSONError(w, verr)
		return
	}

	if err := m.sender.SendEmail(r.Context(), params); err != nil {
		m.log.ErrorContext(r.Context(), "failed to send email",
			slog.String("to", req.To),
			slog.Any("error", err))
		core.JSONError(w, core.ErrInternalServerError)
		return
	}

	core.JSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
