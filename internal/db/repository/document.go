package repository

import (
	"context"
	"database/sql"
	"strings"

	"arkiva/internal/domain"
)

// DocumentRepo persists document metadata. All mutations are single atomic
// UPDATE ... RETURNING statements so concurrent writers never interleave a
// read-modify-write.
type DocumentRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewDocumentRepo creates a DocumentRepo over a write/read pool pair.
// Lookups and listings run on the read pool, mutations on the write pool.
func NewDocumentRepo(write, read *sql.DB) *DocumentRepo {
	return &DocumentRepo{write: write, read: read}
}

const documentColumns = `id, title, description, category, tags, file_type,
	drive_file_id, web_view_link, uploader_id, status, ai_summary, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var d domain.Document
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.Category, &d.Tags, &d.FileType,
		&d.DriveFileID, &d.WebViewLink, &d.UploaderID, &d.Status, &d.AISummary,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &d, nil
}

func (r *DocumentRepo) Create(ctx context.Context, req domain.CreateDocumentRequest, driveFileID, webViewLink string) (*domain.Document, error) {
	row := r.write.QueryRowContext(ctx,
		`INSERT INTO documents
		   (title, description, category, tags, file_type, drive_file_id, web_view_link, uploader_id, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'active')
		 RETURNING `+documentColumns,
		req.Title, req.Description, req.Category, req.Tags, req.FileType,
		driveFileID, webViewLink, req.UploaderID)
	return scanDocument(row)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	row := r.read.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

func (r *DocumentRepo) List(ctx context.Context, filter domain.DocumentFilter, page domain.PageRequest) ([]domain.Document, int64, error) {
	var where []string
	var args []any

	if filter.Query != "" {
		where = append(where, `title LIKE ?`)
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, filter.Category)
	}
	status := filter.Status
	if status == "" {
		status = domain.StatusActive
	}
	where = append(where, `status = ?`)
	args = append(args, status)
	if filter.From != nil {
		where = append(where, `created_at >= ?`)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, `created_at <= ?`)
		args = append(args, *filter.To)
	}

	whereSQL := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := r.read.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(append([]any{}, args...), page.Limit(), page.Offset())
	rows, err := r.read.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents`+whereSQL+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, *d)
	}
	return docs, total, rows.Err()
}

func (r *DocumentRepo) UpdateMetadata(ctx context.Context, id int64, update domain.DocumentUpdate) (*domain.Document, error) {
	if update.Empty() {
		return r.GetByID(ctx, id)
	}

	var sets []string
	var args []any
	if update.Title != nil {
		sets = append(sets, `title = ?`)
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, `description = ?`)
		args = append(args, nullIfEmpty(*update.Description))
	}
	if update.Category != nil {
		sets = append(sets, `category = ?`)
		args = append(args, *update.Category)
	}
	if update.Tags != nil {
		sets = append(sets, `tags = ?`)
		args = append(args, nullIfEmpty(*update.Tags))
	}
	args = append(args, id)

	row := r.write.QueryRowContext(ctx,
		`UPDATE documents SET `+strings.Join(sets, ", ")+`, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING `+documentColumns, args...)
	return scanDocument(row)
}

func (r *DocumentRepo) UpdateFile(ctx context.Context, id int64, fileType, webViewLink string) (*domain.Document, error) {
	row := r.write.QueryRowContext(ctx,
		`UPDATE documents SET file_type = ?, web_view_link = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING `+documentColumns,
		fileType, webViewLink, id)
	return scanDocument(row)
}

func (r *DocumentRepo) SetStatus(ctx context.Context, id int64, status string) (*domain.Document, error) {
	row := r.write.QueryRowContext(ctx,
		`UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING `+documentColumns,
		status, id)
	return scanDocument(row)
}

func (r *DocumentRepo) SetSummary(ctx context.Context, id int64, summary string) (*domain.Document, error) {
	row := r.write.QueryRowContext(ctx,
		`UPDATE documents SET ai_summary = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING `+documentColumns,
		summary, id)
	return scanDocument(row)
}

func (r *DocumentRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.write.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("document %d not found", id)
	}
	return nil
}

// nullIfEmpty maps an explicitly-empty string to NULL so that "clear this
// field" and "leave untouched" stay distinguishable at the API layer.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
