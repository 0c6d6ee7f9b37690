package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"nexchat.app/internal/audit"
	"nexchat.app/internal/content"
	"nexchat.app/internal/ids"
	"nexchat.app/internal/obs"
	"nexchat.app/internal/session"
	"nexchat.app/internal/stream"
)

const defaultHistoryLimit = 100

// Service mints tokens into creator balances and records every mint as a
// signed ledger entry.
type Service struct {
	users    content.Store
	log      Log
	signer   *Signer
	recorder *audit.Recorder
	changes  *stream.Stream
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithChangeStream publishes a ledger change event for every appended
// transaction so dashboard clients refresh without polling.
func WithChangeStream(st *stream.Stream) Option {
	return func(s *Service) { s.changes = st }
}

func NewService(users content.Store, log Log, signer *Signer, recorder *audit.Recorder, opts ...Option) *Service {
	s := &Service{
		users:    users,
		log:      log,
		signer:   signer,
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint credits amount tokens to the recipient and appends a signed
// transaction. The balance update happens first; if the ledger append then
// fails the credit is kept and ErrAppendFailed tells the operator the entry
// must be reconciled.
func (s *Service) Mint(ctx context.Context, recipientRef string, amount int64, note string) (Transaction, error) {
	recipientRef = strings.TrimSpace(recipientRef)
	if recipientRef == "" {
		return Transaction{}, ErrNoRecipient
	}
	if amount <= 0 {
		return Transaction{}, fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}

	user, err := s.resolveUser(ctx, recipientRef)
	if err != nil {
		return Transaction{}, err
	}

	if err := s.users.IncrementTokens(ctx, user.ID, amount); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return Transaction{}, fmt.Errorf("%w: %s", ErrUnknownUser, recipientRef)
		}
		return Transaction{}, fmt.Errorf("credit balance: %w", err)
	}

	tx := Transaction{
		ID:              ids.New(),
		Type:            TypeMint,
		RecipientUserID: user.ID,
		Amount:          amount,
		Note:            strings.TrimSpace(note),
		CreatedAt:       s.now().UTC(),
	}
	if sess, ok := session.FromContext(ctx); ok {
		tx.AdminEmail = sess.AdminEmail
	}
	if s.signer != nil {
		sig, err := s.signer.Sign(tx)
		if err != nil {
			obs.Logger().Error("transaction signing failed", zap.String("tx_id", tx.ID), zap.Error(err))
		} else {
			tx.Signature = sig
		}
	}

	if err := s.log.Append(ctx, tx); err != nil {
		obs.Logger().Error("ledger append failed after balance credit",
			zap.String("tx_id", tx.ID),
			zap.String("user_id", user.ID),
			zap.Int64("amount", amount),
			zap.Error(err))
		return tx, fmt.Errorf("%w: %v", ErrAppendFailed, err)
	}
	s.changes.Publish(stream.Event{
		Kind:       stream.KindInsert,
		Collection: stream.CollectionLedger,
		EntityID:   tx.ID,
		Detail:     tx.Type,
		Timestamp:  tx.CreatedAt,
	})

	e := audit.Event{
		Type:    audit.EventTokensMinted,
		Details: fmt.Sprintf("minted %d tokens to %s", amount, user.ID),
	}
	if sess, ok := session.FromContext(ctx); ok {
		e.AdminEmail = sess.AdminEmail
		e.Role = sess.Role
	}
	s.recorder.Record(ctx, e)
	return tx, nil
}

// Balance returns the current token balance for a user referenced by ID or
// email.
func (s *Service) Balance(ctx context.Context, recipientRef string) (int64, error) {
	user, err := s.resolveUser(ctx, strings.TrimSpace(recipientRef))
	if err != nil {
		return 0, err
	}
	return user.Tokens, nil
}

// History returns recent transactions newest-first, defaulting to mint
// entries only.
func (s *Service) History(ctx context.Context, typeFilter string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if typeFilter == "" {
		typeFilter = TypeMint
	}
	return s.log.Recent(ctx, typeFilter, limit)
}

// resolveUser looks the recipient up by ID first, then by email, so the
// console can accept either form in the mint dialog.
func (s *Service) resolveUser(ctx context.Context, ref string) (content.UserAccount, error) {
	if ref == "" {
		return content.UserAccount{}, ErrNoRecipient
	}
	user, err := s.users.User(ctx, ref)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, content.ErrNotFound) {
		return content.UserAccount{}, fmt.Errorf("resolve recipient: %w", err)
	}
	user, err = s.users.UserByEmail(ctx, ref)
	if errors.Is(err, content.ErrNotFound) {
		return content.UserAccount{}, fmt.Errorf("%w: %s", ErrUnknownUser, ref)
	}
	if err != nil {
		return content.UserAccount{}, fmt.Errorf("resolve recipient: %w", err)
	}
	return user, nil
}
