package domain

import (
	"context"
	"time"
)

// UserRepository provides keyed access to staff accounts.
type UserRepository interface {
	Create(ctx context.Context, req CreateUserRequest) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, page PageRequest) ([]User, int64, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
}

// DocumentRepository provides keyed CRUD plus filtered listing over documents.
// Mutations are expressed as single atomic update-and-return statements.
type DocumentRepository interface {
	Create(ctx context.Context, req CreateDocumentRequest, driveFileID, webViewLink string) (*Document, error)
	GetByID(ctx context.Context, id int64) (*Document, error)
	List(ctx context.Context, filter DocumentFilter, page PageRequest) ([]Document, int64, error)
	UpdateMetadata(ctx context.Context, id int64, update DocumentUpdate) (*Document, error)
	UpdateFile(ctx context.Context, id int64, fileType, webViewLink string) (*Document, error)
	SetStatus(ctx context.Context, id int64, status string) (*Document, error)
	SetSummary(ctx context.Context, id int64, summary string) (*Document, error)
	Delete(ctx context.Context, id int64) error
}

// DriveCredentialRepository stores refresh credential bundles keyed by user id
// (LegacyCredentialUserID for the shared legacy bundle).
type DriveCredentialRepository interface {
	Upsert(ctx context.Context, cred DriveCredential) error
	GetByUserID(ctx context.Context, userID int64) (*DriveCredential, error)
	Delete(ctx context.Context, userID int64) error
}

// OAuthStateRepository stores single-use handshake states. Consume deletes the
// state and returns it; at most one caller can win a given state.
type OAuthStateRepository interface {
	Create(ctx context.Context, state OAuthState) error
	Consume(ctx context.Context, state string) (*OAuthState, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// BlobRef identifies a stored file in the external drive.
type BlobRef struct {
	FileID      string
	WebViewLink string
}

// BlobStore is a handle onto the external drive, bound to one credential.
// The credential resolver produces these; all methods classify permission and
// quota failures distinguishably from generic ones.
type BlobStore interface {
	Upload(ctx context.Context, filename, mimeType string, data []byte, folderID string) (*BlobRef, error)
	Update(ctx context.Context, fileID, mimeType string, data []byte) (*BlobRef, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	Delete(ctx context.Context, fileID string) error
}

// SummaryInput is the metadata and bytes handed to the text-generation
// collaborator.
type SummaryInput struct {
	Title       string
	Category    string
	Description string
	Tags        string
	MimeType    string
	Data        []byte
}

// Summarizer generates a document summary from file bytes and metadata.
type Summarizer interface {
	Summarize(ctx context.Context, in SummaryInput) (string, error)
}
