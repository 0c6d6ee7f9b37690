package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"nexchat.app/internal/content"
	"nexchat.app/internal/directory"
	"nexchat.app/internal/ledger"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestIncrementTokensUsesNativeIncrement(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update users set tokens = tokens \+ \$2 where id=\$1`).
		WithArgs("u1", int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Content().IncrementTokens(context.Background(), "u1", 100); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIncrementTokensMissingUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update users set tokens = tokens`).
		WithArgs("ghost", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Content().IncrementTokens(context.Background(), "ghost", 10)
	if !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`select .* from users where lower\(email\)=lower\(\$1\)`).
		WithArgs("ghost@nexchat.app").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Content().UserByEmail(context.Background(), "ghost@nexchat.app")
	if !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindAdminByEmail(t *testing.T) {
	store, mock := newMockStore(t)

	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "email", "display_name", "role", "password_hash", "is_active", "created_at", "created_by", "last_login",
	}).AddRow("a1", "mod@nexchat.app", "Mod", "moderator", "hash", true, created, "root@nexchat.app", nil)

	mock.ExpectQuery(`select .* from admins where lower\(email\)=lower\(\$1\)`).
		WithArgs("mod@nexchat.app").
		WillReturnRows(rows)

	admin, err := store.Directory().FindByEmail(context.Background(), "mod@nexchat.app")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if admin.ID != "a1" || admin.Role != "moderator" || admin.LastLogin != nil {
		t.Fatalf("admin: %+v", admin)
	}
}

func TestSetActiveNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update admins set is_active=\$2 where id=\$1`).
		WithArgs("ghost", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Directory().SetActive(context.Background(), "ghost", false)
	if !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLedgerLogAppend(t *testing.T) {
	store, mock := newMockStore(t)

	tx := ledger.Transaction{
		ID:              "tx1",
		Type:            ledger.TypeMint,
		AdminEmail:      "root@nexchat.app",
		RecipientUserID: "u1",
		Amount:          100,
		Note:            "bonus",
		Signature:       "sig",
		CreatedAt:       time.Now().UTC(),
	}
	mock.ExpectExec(`insert into token_transactions`).
		WithArgs(tx.ID, tx.Type, tx.AdminEmail, tx.RecipientUserID, tx.Amount, tx.Note, tx.Signature, tx.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.LedgerLog().Append(context.Background(), tx); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAuditSinkRecentFiltersByEmail(t *testing.T) {
	store, mock := newMockStore(t)

	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "event_type", "admin_email", "admin_role", "details", "user_agent", "remote_addr", "created_at",
	}).AddRow("e1", "SESSION_CREATED", "mod@nexchat.app", "moderator", "", "ua", "10.0.0.1", created)

	mock.ExpectQuery(`select .* from security_events`).
		WithArgs("mod@nexchat.app", 10).
		WillReturnRows(rows)

	events, err := store.AuditSink().Recent(context.Background(), "mod@nexchat.app", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 || events[0].Type != "SESSION_CREATED" || events[0].Client.RemoteAddr != "10.0.0.1" {
		t.Fatalf("events: %+v", events)
	}
}
