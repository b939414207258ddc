// Package drive wraps the Google Drive v3 API as the external blob store.
// A Client is a handle bound to exactly one credential; the credential
// resolver decides which credential to bind.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"arkiva/internal/domain"
)

// Client implements domain.BlobStore over the Drive v3 API.
type Client struct {
	svc *gdrive.Service
}

// NewClientFromCredential mints a Client from a stored refresh credential.
// The token source refreshes eagerly so a revoked or lapsed credential fails
// here, where the resolver can move to the next candidate, instead of halfway
// through an upload.
func NewClientFromCredential(ctx context.Context, cred domain.DriveCredential) (*Client, error) {
	conf := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cred.TokenURI},
		Scopes:       []string{gdrive.DriveScope},
	}
	source := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	if _, err := source.Token(); err != nil {
		return nil, fmt.Errorf("refresh drive credential: %w", err)
	}

	svc, err := gdrive.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// NewClientFromServiceAccount mints a Client from a service-account JSON key.
// Service accounts have no personal storage quota, so uploads only work
// against Shared Drive folders.
func NewClientFromServiceAccount(ctx context.Context, jsonKey string) (*Client, error) {
	svc, err := gdrive.NewService(ctx,
		option.WithCredentialsJSON([]byte(jsonKey)),
		option.WithScopes(gdrive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive service from service account: %w", err)
	}
	return &Client{svc: svc}, nil
}

var _ domain.BlobStore = (*Client)(nil)

// Upload stores a new file under the given folder and returns its id and
// view link.
func (c *Client) Upload(ctx context.Context, filename, mimeType string, data []byte, folderID string) (*domain.BlobRef, error) {
	meta := &gdrive.File{Name: filename, Parents: []string{folderID}}
	created, err := c.svc.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("upload", err)
	}
	return &domain.BlobRef{FileID: created.Id, WebViewLink: created.WebViewLink}, nil
}

// Update replaces the bytes of an existing file in place.
func (c *Client) Update(ctx context.Context, fileID, mimeType string, data []byte) (*domain.BlobRef, error) {
	updated, err := c.svc.Files.Update(fileID, &gdrive.File{}).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("update", err)
	}
	return &domain.BlobRef{FileID: updated.Id, WebViewLink: updated.WebViewLink}, nil
}

// Download fetches the raw bytes of a file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	res, err := c.svc.Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, classify("download", err)
	}
	defer res.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classify("download", err)
	}
	return data, nil
}

// Delete removes a file permanently.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	err := c.svc.Files.Delete(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return classify("delete", err)
	}
	return nil
}
