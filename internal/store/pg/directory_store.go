package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"nexchat.app/internal/directory"
)

// DirectoryStore implements directory.Store over PostgreSQL.
type DirectoryStore struct {
	db *sql.DB
}

var _ directory.Store = (*DirectoryStore)(nil)

const adminColumns = `id, email, display_name, role, password_hash, is_active, created_at, created_by, last_login`

func scanAdmin(row interface{ Scan(...any) error }) (directory.Admin, error) {
	var (
		a         directory.Admin
		lastLogin sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.Role, &a.PasswordHash,
		&a.IsActive, &a.CreatedAt, &a.CreatedBy, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Admin{}, directory.ErrNotFound
	}
	if lastLogin.Valid {
		a.LastLogin = &lastLogin.Time
	}
	return a, err
}

func (s *DirectoryStore) Insert(ctx context.Context, a directory.Admin) error {
	_, err := s.db.ExecContext(ctx, `
		insert into admins(id, email, display_name, role, password_hash, is_active, created_at, created_by)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, a.ID, strings.ToLower(a.Email), a.DisplayName, a.Role, a.PasswordHash, a.IsActive, a.CreatedAt, a.CreatedBy)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return directory.ErrAlreadyExists
	}
	return err
}

func (s *DirectoryStore) Find(ctx context.Context, id string) (directory.Admin, error) {
	return scanAdmin(s.db.QueryRowContext(ctx, `select `+adminColumns+` from admins where id=$1`, id))
}

func (s *DirectoryStore) FindByEmail(ctx context.Context, email string) (directory.Admin, error) {
	return scanAdmin(s.db.QueryRowContext(ctx,
		`select `+adminColumns+` from admins where lower(email)=lower($1)`, email))
}

func (s *DirectoryStore) List(ctx context.Context) ([]directory.Admin, error) {
	rows, err := s.db.QueryContext(ctx, `select `+adminColumns+` from admins order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []directory.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (s *DirectoryStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.execOne(ctx, `update admins set is_active=$2 where id=$1`, id, active)
}

func (s *DirectoryStore) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, `update admins set last_login=$2 where id=$1`, id, at)
}

func (s *DirectoryStore) Delete(ctx context.Context, id string) error {
	return s.execOne(ctx, `delete from admins where id=$1`, id)
}

func (s *DirectoryStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return directory.ErrNotFound
	}
	return nil
}
