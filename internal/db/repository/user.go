package repository

import (
	"context"
	"database/sql"

	"arkiva/internal/domain"
)

// UserRepo persists staff accounts.
type UserRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewUserRepo creates a UserRepo over a write/read pool pair.
func NewUserRepo(write, read *sql.DB) *UserRepo {
	return &UserRepo{write: write, read: read}
}

const userColumns = `id, email, password_hash, role, created_at`

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, mapDBError(err)
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	row := r.write.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)
		 RETURNING `+userColumns,
		req.Email, req.PasswordHash, req.Role)
	return scanUser(row)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.read.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.read.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.User, int64, error) {
	var total int64
	if err := r.read.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.read.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *UserRepo) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.write.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("user %d not found", id)
	}
	return nil
}
