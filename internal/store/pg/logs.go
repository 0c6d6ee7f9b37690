package pg

import (
	"context"
	"database/sql"

	"nexchat.app/internal/audit"
	"nexchat.app/internal/ledger"
)

// AuditSink implements audit.Sink over PostgreSQL. The table is insert-only.
type AuditSink struct {
	db *sql.DB
}

var _ audit.Sink = (*AuditSink)(nil)

func (s *AuditSink) Append(ctx context.Context, e audit.Event) error {
	_, err := s.db.ExecContext(ctx, `
		insert into security_events(id, event_type, admin_email, admin_role, details, user_agent, remote_addr, created_at)
		values ($1,$2,$3,nullif($4,''),nullif($5,''),nullif($6,''),nullif($7,''),$8)
	`, e.ID, e.Type, e.AdminEmail, e.Role, e.Details, e.Client.UserAgent, e.Client.RemoteAddr, e.CreatedAt)
	return err
}

func (s *AuditSink) Recent(ctx context.Context, adminEmail string, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, event_type, admin_email, coalesce(admin_role,''), coalesce(details,''),
		       coalesce(user_agent,''), coalesce(remote_addr,''), created_at
		from security_events
		where ($1 = '' or admin_email = $1)
		order by created_at desc
		limit $2
	`, adminEmail, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []audit.Event
	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(&e.ID, &e.Type, &e.AdminEmail, &e.Role, &e.Details,
			&e.Client.UserAgent, &e.Client.RemoteAddr, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LedgerLog implements ledger.Log over PostgreSQL.
type LedgerLog struct {
	db *sql.DB
}

var _ ledger.Log = (*LedgerLog)(nil)

func (l *LedgerLog) Append(ctx context.Context, tx ledger.Transaction) error {
	_, err := l.db.ExecContext(ctx, `
		insert into token_transactions(id, type, admin_email, recipient_user_id, amount, note, signature, created_at)
		values ($1,$2,$3,$4,$5,nullif($6,''),nullif($7,''),$8)
	`, tx.ID, tx.Type, tx.AdminEmail, tx.RecipientUserID, tx.Amount, tx.Note, tx.Signature, tx.CreatedAt)
	return err
}

func (l *LedgerLog) Recent(ctx context.Context, typeFilter string, limit int) ([]ledger.Transaction, error) {
	rows, err := l.db.QueryContext(ctx, `
		select id, type, admin_email, recipient_user_id, amount, coalesce(note,''), coalesce(signature,''), created_at
		from token_transactions
		where ($1 = '' or type = $1)
		order by created_at desc
		limit $2
	`, typeFilter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		if err := rows.Scan(&tx.ID, &tx.Type, &tx.AdminEmail, &tx.RecipientUserID,
			&tx.Amount, &tx.Note, &tx.Signature, &tx.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, tx)
	}
	return res, rows.Err()
}
