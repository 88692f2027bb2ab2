// Package files handles PDF uploads. Stored files are linked onto the
// uploading user's record.
package files

import (
	"log/slog"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/planfence/planfence/core"
	"github.com/planfence/planfence/pkg/upload"
	"github.com/planfence/planfence/svc/user"
)

type Module struct {
	store       user.Store
	storage     upload.Storage
	maxFileSize int64
	log         *slog.Logger
}

func NewModule(store user.Store, storage upload.Storage, maxFileSize int64, log *slog.Logger) *Module {
	return &Module{
		store:       store,
		storage:     storage,
		maxFileSize: maxFileSize,
		log:         log,
	}
}

func (m *Module) Register(r chi.Router) {
	r.With(user.RequireAuth()).Post("/files", m.handleUpload)
}

type uploadResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// handleUpload accepts a single multipart PDF, stores it under the user's
// document prefix and appends a reference onto the user record.
func (m *Module) handleUpload(w http.ResponseWriter, r *http.Request) {
	u, _ := user.FromContext(r.Context())

	if err := r.ParseMultipartForm(m.maxFileSize); err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		verr := core.ValidationError{}
		verr.Add("file", "file is required")
		core.JSONError(w, verr)
		return
	}
	fh := headers[0]

	if err := upload.ValidateSize(fh, m.maxFileSize); err != nil {
		verr := core.ValidationError{}
		verr.Add("file", "file is too large")
		core.JSONError(w, verr)
		return
	}
	if !upload.IsPDF(fh) {
		verr := core.ValidationError{}
		verr.Add("file", "only PDF files are accepted")
		core.JSONError(w, verr)
		return
	}

	fileID := uuid.New()
	name := upload.SanitizeFilename(fh.Filename)
	storagePath := path.Join("documents", u.ID.Hex(), fileID.String()+"-"+name)

	stored, err := m.storage.Save(r.Context(), fh, storagePath)
	if err != nil {
		m.log.ErrorContext(r.Context(), "failed to store upload",
			slog.String("path", storagePath),
			slog.Any("error", err))
		core.JSONError(w, core.ErrInternalServerError)
		return
	}

	ref := user.FileRef{ID: fileID, Name: name, Path: stored.RelativePath}
	if err := m.store.AddFile(r.Context(), u.Email, ref); err != nil {
		m.log.ErrorContext(r.Context(), "failed to link upload to user",
			slog.String("email", u.Email),
			slog.Any("error", err))
		// Best effort: do not leave an orphaned object behind.
		if derr := m.storage.Delete(r.Context(), stored.RelativePath); derr != nil {
			m.log.WarnContext(r.Context(), "failed to remove orphaned upload", slog.Any("error", derr))
		}
		core.JSONError(w, core.ErrInternalServerError)
		return
	}

	core.JSON(w, http.StatusCreated, uploadResponse{
		ID:   fileID.String(),
		Name: name,
		URL:  m.storage.URL(stored.RelativePath),
	})
}
