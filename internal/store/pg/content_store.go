package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"nexchat.app/internal/content"
)

// ContentStore implements content.Store over PostgreSQL.
type ContentStore struct {
	db *sql.DB
}

var _ content.Store = (*ContentStore)(nil)

const userColumns = `id, email, username, is_blocked, is_banned, coalesce(ban_reason,''), tokens, is_online, created_at`

func scanUser(row interface{ Scan(...any) error }) (content.UserAccount, error) {
	var u content.UserAccount
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.IsBlocked, &u.IsBanned,
		&u.BanReason, &u.Tokens, &u.IsOnline, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return content.UserAccount{}, content.ErrNotFound
	}
	return u, err
}

func (s *ContentStore) Users(ctx context.Context) ([]content.UserAccount, error) {
	return s.queryUsers(ctx, `select `+userColumns+` from users order by created_at asc`)
}

func (s *ContentStore) BlockedUsers(ctx context.Context) ([]content.UserAccount, error) {
	return s.queryUsers(ctx, `select `+userColumns+` from users where is_blocked order by created_at asc`)
}

func (s *ContentStore) queryUsers(ctx context.Context, query string, args ...any) ([]content.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []content.UserAccount
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *ContentStore) User(ctx context.Context, id string) (content.UserAccount, error) {
	return scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1`, id))
}

func (s *ContentStore) UserByEmail(ctx context.Context, email string) (content.UserAccount, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email)=lower($1)`, email))
}

func (s *ContentStore) InsertUser(ctx context.Context, u content.UserAccount) error {
	if u.ID == "" {
		return content.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users(id, email, username, is_blocked, is_banned, ban_reason, tokens, is_online, created_at)
		values ($1,$2,$3,$4,$5,nullif($6,''),$7,$8,$9)
	`, u.ID, u.Email, u.Username, u.IsBlocked, u.IsBanned, u.BanReason, u.Tokens, u.IsOnline, u.CreatedAt)
	return err
}

func (s *ContentStore) SetUserBlocked(ctx context.Context, id string, blocked bool) error {
	return s.execOne(ctx, `update users set is_blocked=$2 where id=$1`, id, blocked)
}

func (s *ContentStore) SetUserBanned(ctx context.Context, id, reason string, at time.Time) error {
	return s.execOne(ctx, `update users set is_banned=true, ban_reason=$2, banned_at=$3 where id=$1`,
		id, reason, at)
}

func (s *ContentStore) IncrementTokens(ctx context.Context, id string, delta int64) error {
	// Single-statement increment; concurrent mints to the same account
	// serialize on the row without a client-side read-modify-write.
	return s.execOne(ctx, `update users set tokens = tokens + $2 where id=$1`, id, delta)
}

func (s *ContentStore) DeleteUser(ctx context.Context, id string) error {
	return s.execOne(ctx, `delete from users where id=$1`, id)
}

const videoColumns = `id, author_id, title, flagged, coalesce(flagged_by,''), flagged_at, views, likes, comments, created_at`

func scanVideo(row interface{ Scan(...any) error }) (content.Video, error) {
	var (
		v         content.Video
		flaggedAt sql.NullTime
	)
	err := row.Scan(&v.ID, &v.AuthorID, &v.Title, &v.Flagged, &v.FlaggedBy,
		&flaggedAt, &v.Views, &v.Likes, &v.Comments, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Video{}, content.ErrNotFound
	}
	if flaggedAt.Valid {
		v.FlaggedAt = &flaggedAt.Time
	}
	return v, err
}

func (s *ContentStore) Videos(ctx context.Context) ([]content.Video, error) {
	return s.queryVideos(ctx, `select `+videoColumns+` from videos order by created_at asc`)
}

func (s *ContentStore) VideosByAuthor(ctx context.Context, authorID string) ([]content.Video, error) {
	return s.queryVideos(ctx,
		`select `+videoColumns+` from videos where author_id=$1 order by created_at asc`, authorID)
}

func (s *ContentStore) queryVideos(ctx context.Context, query string, args ...any) ([]content.Video, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []content.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

func (s *ContentStore) Video(ctx context.Context, id string) (content.Video, error) {
	return scanVideo(s.db.QueryRowContext(ctx, `select `+videoColumns+` from videos where id=$1`, id))
}

func (s *ContentStore) InsertVideo(ctx context.Context, v content.Video) error {
	if v.ID == "" {
		return content.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		insert into videos(id, author_id, title, flagged, flagged_by, flagged_at, views, likes, comments, created_at)
		values ($1,$2,$3,$4,nullif($5,''),$6,$7,$8,$9,$10)
	`, v.ID, v.AuthorID, v.Title, v.Flagged, v.FlaggedBy, v.FlaggedAt, v.Views, v.Likes, v.Comments, v.CreatedAt)
	return err
}

func (s *ContentStore) SetVideoFlagged(ctx context.Context, id, flaggedBy string, at time.Time) error {
	return s.execOne(ctx, `update videos set flagged=true, flagged_by=$2, flagged_at=$3 where id=$1`,
		id, flaggedBy, at)
}

func (s *ContentStore) DeleteVideo(ctx context.Context, id string) error {
	return s.execOne(ctx, `delete from videos where id=$1`, id)
}

const reportColumns = `id, kind, reporter_id, target_id, reason, coalesce(details,''), status, coalesce(action_taken,''), created_at, updated_at`

func scanReport(row interface{ Scan(...any) error }) (content.Report, error) {
	var (
		r         content.Report
		updatedAt sql.NullTime
	)
	err := row.Scan(&r.ID, &r.Kind, &r.ReporterID, &r.TargetID, &r.Reason,
		&r.Details, &r.Status, &r.ActionTaken, &r.CreatedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Report{}, content.ErrNotFound
	}
	if updatedAt.Valid {
		r.UpdatedAt = &updatedAt.Time
	}
	return r, err
}

func (s *ContentStore) Reports(ctx context.Context) ([]content.Report, error) {
	return s.queryReports(ctx, `select `+reportColumns+` from reports order by created_at asc`)
}

func (s *ContentStore) ReportsByStatus(ctx context.Context, status string) ([]content.Report, error) {
	return s.queryReports(ctx,
		`select `+reportColumns+` from reports where status=$1 order by created_at asc`, status)
}

func (s *ContentStore) queryReports(ctx context.Context, query string, args ...any) ([]content.Report, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []content.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *ContentStore) Report(ctx context.Context, id string) (content.Report, error) {
	return scanReport(s.db.QueryRowContext(ctx, `select `+reportColumns+` from reports where id=$1`, id))
}

func (s *ContentStore) InsertReport(ctx context.Context, r content.Report) error {
	if r.ID == "" {
		return content.ErrInvalidInput
	}
	if r.Status == "" {
		r.Status = content.ReportStatusPending
	}
	_, err := s.db.ExecContext(ctx, `
		insert into reports(id, kind, reporter_id, target_id, reason, details, status, action_taken, created_at)
		values ($1,$2,$3,$4,$5,nullif($6,''),$7,nullif($8,''),$9)
	`, r.ID, r.Kind, r.ReporterID, r.TargetID, r.Reason, r.Details, r.Status, r.ActionTaken, r.CreatedAt)
	return err
}

func (s *ContentStore) SetReportStatus(ctx context.Context, id, status, actionTaken string, at time.Time) error {
	return s.execOne(ctx, `
		update reports
		set status=$2, action_taken=coalesce(nullif($3,''), action_taken), updated_at=$4
		where id=$1
	`, id, status, actionTaken, at)
}

func (s *ContentStore) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `select count(*) from messages`).Scan(&n)
	return n, err
}

func (s *ContentStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return content.ErrNotFound
	}
	return nil
}
