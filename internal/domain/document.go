package domain

import "time"

// Document statuses.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Accepted upload MIME types.
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// MaxFileBytes is the upload size ceiling (10 MiB).
const MaxFileBytes = 10 << 20

// AllowedFileType reports whether the MIME type is accepted for upload.
func AllowedFileType(mime string) bool {
	return mime == MimePDF || mime == MimeDOCX
}

// Document is an academic document whose bytes live in the external drive
// and whose metadata lives in the local store. DriveFileID is immutable and
// unique once set.
type Document struct {
	ID          int64
	Title       string
	Description *string
	Category    string
	Tags        *string
	FileType    string
	DriveFileID string
	WebViewLink string
	UploaderID  *int64
	Status      string
	AISummary   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateDocumentRequest holds validated metadata for a new document.
// File bytes travel separately through the blob-store collaborator.
type CreateDocumentRequest struct {
	Title       string
	Description *string
	Category    string
	Tags        *string
	FileName    string
	FileType    string
	UploaderID  int64
}

// Validate checks that the request is well-formed. File type and size are
// validated by the orchestrator before any external call.
func (r *CreateDocumentRequest) Validate() error {
	if r.Title == "" {
		return ErrValidation("title is required")
	}
	if r.Category == "" {
		return ErrValidation("category is required")
	}
	return nil
}

// DocumentUpdate is a partial metadata update. Nil fields are left untouched;
// a non-nil pointer to an empty string is rejected for title and category.
type DocumentUpdate struct {
	Title       *string
	Description *string
	Tags        *string
	Category    *string
}

// Empty reports whether the update carries no changes.
func (u DocumentUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Tags == nil && u.Category == nil
}

// Validate rejects blank values for fields that must stay non-empty.
func (u DocumentUpdate) Validate() error {
	if u.Title != nil && *u.Title == "" {
		return ErrValidation("title cannot be empty")
	}
	if u.Category != nil && *u.Category == "" {
		return ErrValidation("category cannot be empty")
	}
	return nil
}

// DocumentFilter holds list filters; all set fields are ANDed.
type DocumentFilter struct {
	Query    string // free-text match against title
	Category string
	Status   string // defaults to "active" when empty
	From     *time.Time
	To       *time.Time
}

// DefaultPageSize is the page size when none is specified.
const DefaultPageSize = 20

// MaxPageSize is the maximum allowed page size.
const MaxPageSize = 100

// PageRequest holds pagination parameters for list operations.
type PageRequest struct {
	Page     int
	PageSize int
}

// Clamp normalizes pagination: page >= 1, 1 <= page_size <= MaxPageSize,
// defaulting page_size to DefaultPageSize.
func (p PageRequest) Clamp() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the clamped page.
func (p PageRequest) Offset() int {
	c := p.Clamp()
	return (c.Page - 1) * c.PageSize
}

// Limit returns the clamped page size.
func (p PageRequest) Limit() int {
	return p.Clamp().PageSize
}
