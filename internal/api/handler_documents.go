package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"arkiva/internal/domain"
)

// maxUploadBytes caps multipart reads slightly above the domain limit so the
// "too large" case surfaces as a validation error rather than a connection
// reset mid-body.
const maxUploadBytes = domain.MaxFileBytes + 1<<20

// documentID parses the path parameter.
func documentID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil || id < 1 {
		return 0, domain.ErrValidation("invalid document id")
	}
	return id, nil
}

// filterFromQuery extracts list filters from the query string.
func filterFromQuery(r *http.Request) (domain.DocumentFilter, error) {
	q := r.URL.Query()
	filter := domain.DocumentFilter{
		Query:    strings.TrimSpace(q.Get("search")),
		Category: strings.TrimSpace(q.Get("category")),
		Status:   strings.TrimSpace(q.Get("status")),
	}
	if filter.Status != "" && filter.Status != domain.StatusActive && filter.Status != domain.StatusArchived {
		return filter, domain.ErrValidation("status must be 'active' or 'archived'")
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, domain.ErrValidation("from must be a YYYY-MM-DD date")
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, domain.ErrValidation("to must be a YYYY-MM-DD date")
		}
		// Inclusive upper bound: the whole given day.
		t = t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &t
	}
	return filter, nil
}

// pageFromQuery extracts pagination from the query string; out-of-range
// values are clamped later, non-numeric ones rejected here.
func pageFromQuery(r *http.Request) (domain.PageRequest, error) {
	q := r.URL.Query()
	page := domain.PageRequest{}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, domain.ErrValidation("page must be an integer")
		}
		page.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, domain.ErrValidation("page_size must be an integer")
		}
		page.PageSize = n
	}
	return page, nil
}

type documentListResponse struct {
	Items    []documentDTO `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ListDocuments returns a filtered, paginated document listing.
func (h *APIHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	docs, total, err := h.documents.List(r.Context(), filter, page)
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]documentDTO, len(docs))
	for i, d := range docs {
		items[i] = documentToAPI(d)
	}
	clamped := page.Clamp()
	writeJSON(w, http.StatusOK, documentListResponse{
		Items:    items,
		Total:    total,
		Page:     clamped.Page,
		PageSize: clamped.PageSize,
	})
}

// GetDocument returns a single document.
func (h *APIHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	doc, err := h.documents.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToAPI(*doc))
}

// uploadedFile is the parsed multipart file part.
type uploadedFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// readUploadedFile pulls the "file" part out of a multipart form. The MIME
// type comes from the part header, falling back to the filename extension.
func readUploadedFile(r *http.Request) (*uploadedFile, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.ErrValidation("file exceeds the 10 MiB limit")
		}
		return nil, domain.ErrValidation("request must be multipart/form-data with a 'file' part")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, domain.ErrValidation("file is required")
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, domain.ErrValidation("could not read the uploaded file")
	}

	return &uploadedFile{
		Name:     header.Filename,
		MimeType: mimeTypeOf(header),
		Data:     data,
	}, nil
}

func mimeTypeOf(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".pdf":
		return domain.MimePDF
	case ".docx":
		return domain.MimeDOCX
	}
	return header.Header.Get("Content-Type")
}

// formValuePtr returns a pointer to a trimmed form value, nil when absent.
func formValuePtr(r *http.Request, key string) *string {
	if _, ok := r.MultipartForm.Value[key]; !ok {
		return nil
	}
	v := strings.TrimSpace(r.FormValue(key))
	return &v
}

// CreateDocument uploads a new document (multipart: title, category,
// description, tags, file).
func (h *APIHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	file, err := readUploadedFile(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	req := domain.CreateDocumentRequest{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Description: formValuePtr(r, "description"),
		Tags:        formValuePtr(r, "tags"),
		FileName:    file.Name,
		FileType:    file.MimeType,
	}

	doc, err := h.documents.Create(r.Context(), req, file.Data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, documentToAPI(*doc))
}

type updateDocumentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Tags        *string `json:"tags"`
	Category    *string `json:"category"`
}

// UpdateDocument applies a partial metadata update.
func (h *APIHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req updateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrValidation("invalid JSON body"))
		return
	}

	doc, err := h.documents.UpdateMetadata(r.Context(), id, domain.DocumentUpdate{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Category:    req.Category,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToAPI(*doc))
}

// ReplaceDocumentFile swaps the stored file bytes (multipart: file).
func (h *APIHandler) ReplaceDocumentFile(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	file, err := readUploadedFile(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	doc, err := h.documents.ReplaceFile(r.Context(), id, file.MimeType, file.Data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToAPI(*doc))
}

// ArchiveDocument marks a document archived.
func (h *APIHandler) ArchiveDocument(w http.ResponseWriter, r *http.Request) {
	h.setDocumentStatus(w, r, h.documents.Archive)
}

// UnarchiveDocument returns a document to active status.
func (h *APIHandler) UnarchiveDocument(w http.ResponseWriter, r *http.Request) {
	h.setDocumentStatus(w, r, h.documents.Unarchive)
}

func (h *APIHandler) setDocumentStatus(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (*domain.Document, error)) {
	id, err := documentID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	doc, err := op(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToAPI(*doc))
}

// DeleteDocument removes a document and its stored file.
func (h *APIHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.documents.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type summaryResponse struct {
	DocID     int64  `json:"doc_id"`
	AISummary string `json:"ai_summary"`
}

// SummarizeDocument generates (or returns the cached) summary for a document.
func (h *APIHandler) SummarizeDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	refresh := r.URL.Query().Get("refresh") == "true"

	doc, err := h.documents.Summarize(r.Context(), id, refresh)
	if err != nil {
		h.writeError(w, err)
		return
	}

	summary := ""
	if doc.AISummary != nil {
		summary = *doc.AISummary
	}
	writeJSON(w, http.StatusOK, summaryResponse{DocID: doc.ID, AISummary: summary})
}
