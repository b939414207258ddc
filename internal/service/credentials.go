// Package service implements the application use-cases on top of the domain
// repositories and external collaborators.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"arkiva/internal/domain"
	"arkiva/internal/drive"
)

// BlobClientFactory mints blob-store handles from credentials. Swapped for a
// fake in tests.
type BlobClientFactory interface {
	FromCredential(ctx context.Context, cred domain.DriveCredential) (domain.BlobStore, error)
	FromServiceAccount(ctx context.Context, jsonKey string) (domain.BlobStore, error)
}

// DriveClientFactory builds real Drive clients.
type DriveClientFactory struct{}

func (DriveClientFactory) FromCredential(ctx context.Context, cred domain.DriveCredential) (domain.BlobStore, error) {
	return drive.NewClientFromCredential(ctx, cred)
}

func (DriveClientFactory) FromServiceAccount(ctx context.Context, jsonKey string) (domain.BlobStore, error) {
	return drive.NewClientFromServiceAccount(ctx, jsonKey)
}

// CredentialResolver picks a working drive credential for an operation. The
// fallback order is a first-class policy: the acting user's own connection,
// then the uploader's, then the legacy shared credential, then the
// service-account key. Connections lapse independently per user, so every
// candidate is attempted in isolation and the operation survives as long as
// any applicable credential still works.
type CredentialResolver struct {
	creds              domain.DriveCredentialRepository
	factory            BlobClientFactory
	serviceAccountJSON string
	logger             *slog.Logger
}

// NewCredentialResolver creates a resolver. serviceAccountJSON may be empty,
// in which case the last-resort candidate is simply absent.
func NewCredentialResolver(creds domain.DriveCredentialRepository, factory BlobClientFactory, serviceAccountJSON string, logger *slog.Logger) *CredentialResolver {
	return &CredentialResolver{
		creds:              creds,
		factory:            factory,
		serviceAccountJSON: serviceAccountJSON,
		logger:             logger,
	}
}

// candidate is one named credential source in priority order.
type candidate struct {
	name  string
	build func(ctx context.Context) (domain.BlobStore, error)
}

func (r *CredentialResolver) storedCredential(userID int64) func(ctx context.Context) (domain.BlobStore, error) {
	return func(ctx context.Context) (domain.BlobStore, error) {
		cred, err := r.creds.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return r.factory.FromCredential(ctx, *cred)
	}
}

// candidates returns the ordered credential sources applicable to an
// operation by the acting user against a document uploaded by uploaderID
// (nil when there is no document or no recorded owner).
func (r *CredentialResolver) candidates(actingUserID int64, uploaderID *int64) []candidate {
	list := []candidate{
		{name: "acting-user", build: r.storedCredential(actingUserID)},
	}
	if uploaderID != nil && *uploaderID != actingUserID {
		list = append(list, candidate{name: "uploader", build: r.storedCredential(*uploaderID)})
	}
	list = append(list, candidate{name: "legacy", build: r.storedCredential(domain.LegacyCredentialUserID)})
	if r.serviceAccountJSON != "" {
		list = append(list, candidate{
			name: "service-account",
			build: func(ctx context.Context) (domain.BlobStore, error) {
				return r.factory.FromServiceAccount(ctx, r.serviceAccountJSON)
			},
		})
	}
	return list
}

// Attempt runs op against each candidate handle in priority order, stopping
// at the first success. A failure minting or using one candidate never aborts
// the resolution; only when every candidate has failed does the caller get a
// single aggregated UnavailableError.
func (r *CredentialResolver) Attempt(ctx context.Context, actingUserID int64, uploaderID *int64, op func(ctx context.Context, store domain.BlobStore) error) error {
	var causes []error
	for _, cand := range r.candidates(actingUserID, uploaderID) {
		store, err := cand.build(ctx)
		if err != nil {
			causes = append(causes, fmt.Errorf("%s: %w", cand.name, err))
			r.logger.Debug("drive credential candidate unusable", "candidate", cand.name, "error", err)
			continue
		}
		if err := op(ctx, store); err != nil {
			causes = append(causes, fmt.Errorf("%s: %w", cand.name, err))
			r.logger.Warn("drive operation failed, trying next credential",
				"candidate", cand.name,
				"quota", drive.IsQuota(err),
				"permission", drive.IsPermission(err),
				"error", err)
			continue
		}
		return nil
	}
	return domain.ErrUnavailable(errors.Join(causes...), "drive unavailable: all credential candidates failed")
}
