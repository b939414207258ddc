// Package api provides the HTTP handlers for the document archive REST API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"arkiva/internal/domain"
	"arkiva/internal/service"
)

// APIHandler holds the services behind the HTTP surface.
type APIHandler struct {
	auth      *service.AuthService
	documents *service.DocumentService
	drive     *service.DriveConnectService
	pingDB    func(ctx context.Context) error
	logger    *slog.Logger
}

// NewHandler creates an APIHandler with all required service dependencies.
func NewHandler(
	auth *service.AuthService,
	documents *service.DocumentService,
	drive *service.DriveConnectService,
	pingDB func(ctx context.Context) error,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		auth:      auth,
		documents: documents,
		drive:     drive,
		pingDB:    pingDB,
		logger:    logger,
	}
}

// Routes registers every endpoint on the router.
func (h *APIHandler) Routes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorStatus(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", h.Health)
	r.Get("/health/db", h.HealthDB)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)
		r.Get("/auth/me", h.Me)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.CreateDocument)
			r.Route("/{documentID}", func(r chi.Router) {
				r.Get("/", h.GetDocument)
				r.Put("/", h.UpdateDocument)
				r.Delete("/", h.DeleteDocument)
				r.Put("/file", h.ReplaceDocumentFile)
				r.Patch("/archive", h.ArchiveDocument)
				r.Patch("/unarchive", h.UnarchiveDocument)
				r.Post("/summary", h.SummarizeDocument)
			})
		})

		r.Route("/drive", func(r chi.Router) {
			r.Get("/auth/start", h.DriveAuthStart)
			r.Get("/auth/url", h.DriveAuthURL)
			r.Get("/auth/callback", h.DriveAuthCallback)
			r.Get("/status", h.DriveStatus)
			r.Delete("/disconnect", h.DriveDisconnect)
		})
	})
}

// writeError maps a domain error onto the envelope, logging unexpected ones.
func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		writeErrorStatus(w, status, "internal server error")
		return
	}
	writeErrorStatus(w, status, err.Error())
}

// --- DTOs ---

type userDTO struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func userToAPI(u *domain.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Role: u.Role}
}

type documentDTO struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Category    string    `json:"category"`
	Tags        *string   `json:"tags"`
	FileType    string    `json:"file_type"`
	DriveFileID string    `json:"drive_file_id"`
	WebViewLink string    `json:"web_view_link"`
	UploaderID  *int64    `json:"uploader_id"`
	Status      string    `json:"status"`
	AISummary   *string   `json:"ai_summary"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func documentToAPI(d domain.Document) documentDTO {
	return documentDTO{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Tags:        d.Tags,
		FileType:    d.FileType,
		DriveFileID: d.DriveFileID,
		WebViewLink: d.WebViewLink,
		UploaderID:  d.UploaderID,
		Status:      d.Status,
		AISummary:   d.AISummary,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
