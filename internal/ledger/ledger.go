// Package ledger maintains the append-only record of token movements and
// the minting operation that credits creator balances.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidAmount    = errors.New("ledger: amount must be a positive integer")
	ErrNoRecipient      = errors.New("ledger: recipient is required")
	ErrUnknownUser      = errors.New("ledger: recipient not found")
	ErrAppendFailed     = errors.New("ledger: balance updated but transaction not recorded")
	ErrInvalidSignature = errors.New("ledger: transaction signature invalid")
)

// TypeMint is the only transaction type the console writes. Reads filter on
// type so client-side earn/spend entries can share the same log.
const TypeMint = "mint"

// Transaction is one immutable ledger entry.
type Transaction struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	AdminEmail      string    `json:"admin_email"`
	RecipientUserID string    `json:"recipient_user_id"`
	Amount          int64     `json:"amount"`
	Note            string    `json:"note,omitempty"`
	Signature       string    `json:"signature"`
	CreatedAt       time.Time `json:"created_at"`
}

// Log persists transactions. Entries are never updated or removed.
type Log interface {
	Append(ctx context.Context, tx Transaction) error
	// Recent returns up to limit transactions newest-first. An empty
	// typeFilter returns all types.
	Recent(ctx context.Context, typeFilter string, limit int) ([]Transaction, error)
}
