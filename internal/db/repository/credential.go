package repository

import (
	"context"
	"database/sql"

	"arkiva/internal/db/crypto"
	"arkiva/internal/domain"
)

// DriveCredentialRepo persists drive refresh credentials keyed by user id.
// Refresh tokens and client secrets are encrypted before they touch the disk.
type DriveCredentialRepo struct {
	write     *sql.DB
	read      *sql.DB
	encryptor *crypto.Encryptor
}

// NewDriveCredentialRepo creates a DriveCredentialRepo over a write/read pool
// pair with the given encryptor.
func NewDriveCredentialRepo(write, read *sql.DB, encryptor *crypto.Encryptor) *DriveCredentialRepo {
	return &DriveCredentialRepo{write: write, read: read, encryptor: encryptor}
}

// Upsert fully replaces the credential for its key and bumps updated_at.
func (r *DriveCredentialRepo) Upsert(ctx context.Context, cred domain.DriveCredential) error {
	refreshToken, err := r.encryptor.Encrypt(cred.RefreshToken)
	if err != nil {
		return err
	}
	clientSecret, err := r.encryptor.Encrypt(cred.ClientSecret)
	if err != nil {
		return err
	}

	_, err = r.write.ExecContext(ctx,
		`INSERT INTO drive_credentials (user_id, refresh_token, token_uri, client_id, client_secret)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   refresh_token = excluded.refresh_token,
		   token_uri     = excluded.token_uri,
		   client_id     = excluded.client_id,
		   client_secret = excluded.client_secret,
		   updated_at    = CURRENT_TIMESTAMP`,
		cred.UserID, refreshToken, cred.TokenURI, cred.ClientID, clientSecret)
	return mapDBError(err)
}

func (r *DriveCredentialRepo) GetByUserID(ctx context.Context, userID int64) (*domain.DriveCredential, error) {
	var c domain.DriveCredential
	err := r.read.QueryRowContext(ctx,
		`SELECT user_id, refresh_token, token_uri, client_id, client_secret, created_at, updated_at
		 FROM drive_credentials WHERE user_id = ?`, userID).
		Scan(&c.UserID, &c.RefreshToken, &c.TokenURI, &c.ClientID, &c.ClientSecret,
			&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}

	if c.RefreshToken, err = r.encryptor.Decrypt(c.RefreshToken); err != nil {
		return nil, err
	}
	if c.ClientSecret, err = r.encryptor.Decrypt(c.ClientSecret); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *DriveCredentialRepo) Delete(ctx context.Context, userID int64) error {
	res, err := r.write.ExecContext(ctx,
		`DELETE FROM drive_credentials WHERE user_id = ?`, userID)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("no drive credential for user %d", userID)
	}
	return nil
}
