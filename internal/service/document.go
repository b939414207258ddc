package service

import (
	"context"
	"log/slog"

	"arkiva/internal/auth"
	"arkiva/internal/domain"
)

// DocumentService orchestrates document operations: authorization via the
// capability table, input validation before any external call, then the
// drive and metadata steps in an order that never leaves a record pointing
// at bytes that were deleted.
type DocumentService struct {
	docs       domain.DocumentRepository
	resolver   *CredentialResolver
	summarizer domain.Summarizer
	folderID   string
	logger     *slog.Logger
}

// NewDocumentService creates a DocumentService. summarizer may be nil when
// text generation is not configured.
func NewDocumentService(
	docs domain.DocumentRepository,
	resolver *CredentialResolver,
	summarizer domain.Summarizer,
	folderID string,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		docs:       docs,
		resolver:   resolver,
		summarizer: summarizer,
		folderID:   folderID,
		logger:     logger,
	}
}

// List returns a filtered, paginated page of documents plus the total count.
func (s *DocumentService) List(ctx context.Context, filter domain.DocumentFilter, page domain.PageRequest) ([]domain.Document, int64, error) {
	if _, err := auth.Authorize(ctx, auth.OpListDocuments, nil); err != nil {
		return nil, 0, err
	}
	return s.docs.List(ctx, filter, page.Clamp())
}

// Get returns a single document by id.
func (s *DocumentService) Get(ctx context.Context, id int64) (*domain.Document, error) {
	if _, err := auth.Authorize(ctx, auth.OpGetDocument, nil); err != nil {
		return nil, err
	}
	return s.docs.GetByID(ctx, id)
}

// validateUpload enforces the MIME allow-list and size ceiling. Runs before
// any external call so a bad upload never consumes drive quota.
func validateUpload(mimeType string, data []byte) error {
	if !domain.AllowedFileType(mimeType) {
		return domain.ErrValidation("only PDF and DOCX files are accepted")
	}
	if len(data) == 0 {
		return domain.ErrValidation("file is required")
	}
	if len(data) > domain.MaxFileBytes {
		return domain.ErrValidation("file exceeds the 10 MiB limit")
	}
	return nil
}

// Create uploads the file through the credential fallback chain and records
// the document with the caller as uploader.
func (s *DocumentService) Create(ctx context.Context, req domain.CreateDocumentRequest, data []byte) (*domain.Document, error) {
	p, err := auth.Authorize(ctx, auth.OpCreateDocument, nil)
	if err != nil {
		return nil, err
	}
	req.UploaderID = p.ID
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := validateUpload(req.FileType, data); err != nil {
		return nil, err
	}
	if s.folderID == "" {
		return nil, domain.ErrValidation("document storage is not configured (DRIVE_FOLDER_ID)")
	}

	var ref *domain.BlobRef
	err = s.resolver.Attempt(ctx, p.ID, nil, func(ctx context.Context, store domain.BlobStore) error {
		r, err := store.Upload(ctx, req.FileName, req.FileType, data, s.folderID)
		if err != nil {
			return err
		}
		ref = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.Create(ctx, req, ref.FileID, ref.WebViewLink)
	if err != nil {
		// Metadata insert failed after the bytes landed; the orphaned file
		// is logged rather than best-effort deleted with a credential that
		// may no longer resolve the same way.
		s.logger.Error("document record failed after upload", "drive_file_id", ref.FileID, "error", err)
		return nil, err
	}

	s.logger.Info("document created", "document_id", doc.ID, "uploader_id", p.ID)
	return doc, nil
}

// UpdateMetadata applies a partial metadata update.
func (s *DocumentService) UpdateMetadata(ctx context.Context, id int64, update domain.DocumentUpdate) (*domain.Document, error) {
	if _, err := auth.Authorize(ctx, auth.OpUpdateMetadata, nil); err != nil {
		return nil, err
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if update.Empty() {
		return s.docs.GetByID(ctx, id)
	}
	return s.docs.UpdateMetadata(ctx, id, update)
}

// ReplaceFile swaps the stored bytes of a document in place. The drive file
// id survives the replacement; only the view link may change.
func (s *DocumentService) ReplaceFile(ctx context.Context, id int64, mimeType string, data []byte) (*domain.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := auth.Authorize(ctx, auth.OpReplaceFile, doc.UploaderID)
	if err != nil {
		return nil, err
	}
	if err := validateUpload(mimeType, data); err != nil {
		return nil, err
	}

	webViewLink := doc.WebViewLink
	err = s.resolver.Attempt(ctx, p.ID, doc.UploaderID, func(ctx context.Context, store domain.BlobStore) error {
		ref, err := store.Update(ctx, doc.DriveFileID, mimeType, data)
		if err != nil {
			return err
		}
		if ref.WebViewLink != "" {
			webViewLink = ref.WebViewLink
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.docs.UpdateFile(ctx, id, mimeType, webViewLink)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document file replaced", "document_id", id, "by", p.ID)
	return updated, nil
}

// Archive marks a document archived. Archiving an archived document is a
// no-op that returns the current record.
func (s *DocumentService) Archive(ctx context.Context, id int64) (*domain.Document, error) {
	return s.setStatus(ctx, auth.OpArchive, id, domain.StatusArchived)
}

// Unarchive returns a document to active status.
func (s *DocumentService) Unarchive(ctx context.Context, id int64) (*domain.Document, error) {
	return s.setStatus(ctx, auth.OpUnarchive, id, domain.StatusActive)
}

func (s *DocumentService) setStatus(ctx context.Context, operation string, id int64, status string) (*domain.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := auth.Authorize(ctx, operation, doc.UploaderID); err != nil {
		return nil, err
	}
	if doc.Status == status {
		return doc, nil
	}
	return s.docs.SetStatus(ctx, id, status)
}

// Delete removes the drive file first, then the record. When every
// credential candidate fails the record survives, so the document never
// becomes a dangling row whose bytes still exist but are unreachable
// through the archive.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	p, err := auth.Authorize(ctx, auth.OpDeleteDocument, doc.UploaderID)
	if err != nil {
		return err
	}

	err = s.resolver.Attempt(ctx, p.ID, doc.UploaderID, func(ctx context.Context, store domain.BlobStore) error {
		return store.Delete(ctx, doc.DriveFileID)
	})
	if err != nil {
		return err
	}

	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("document deleted", "document_id", id, "by", p.ID)
	return nil
}

// Summarize downloads the document bytes, generates a summary, persists it,
// and returns the updated document. An existing summary is returned as-is
// unless refresh is set.
func (s *DocumentService) Summarize(ctx context.Context, id int64, refresh bool) (*domain.Document, error) {
	p, err := auth.Authorize(ctx, auth.OpSummarize, nil)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.AISummary != nil && *doc.AISummary != "" && !refresh {
		return doc, nil
	}
	if s.summarizer == nil {
		return nil, domain.ErrValidation("summaries are not configured (GEMINI_API_KEY)")
	}

	var data []byte
	err = s.resolver.Attempt(ctx, p.ID, doc.UploaderID, func(ctx context.Context, store domain.BlobStore) error {
		b, err := store.Download(ctx, doc.DriveFileID)
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	in := domain.SummaryInput{
		Title:    doc.Title,
		Category: doc.Category,
		MimeType: doc.FileType,
		Data:     data,
	}
	if doc.Description != nil {
		in.Description = *doc.Description
	}
	if doc.Tags != nil {
		in.Tags = *doc.Tags
	}

	summary, err := s.summarizer.Summarize(ctx, in)
	if err != nil {
		return nil, domain.ErrUnavailable(err, "summary generation failed")
	}

	updated, err := s.docs.SetSummary(ctx, id, summary)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document summarized", "document_id", id)
	return updated, nil
}
