package directory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"nexchat.app/internal/audit"
	"nexchat.app/internal/identity"
	"nexchat.app/internal/ids"
	"nexchat.app/internal/obs"
	"nexchat.app/internal/session"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service exposes admin-record operations: validation for the security
// layer, authentication for login, and provisioning for the admins tab.
type Service struct {
	store    Store
	idp      identity.Provider
	recorder *audit.Recorder
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, idp identity.Provider, recorder *audit.Recorder, opts ...Option) *Service {
	s := &Service{
		store:    store,
		idp:      idp,
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks that an admin record exists and is active. It fails
// closed: a missing record, an inactive account, and a backend error all
// yield false, each with its own security event. It never returns an error.
func (s *Service) Validate(ctx context.Context, email string) bool {
	email = normalizeEmail(email)
	admin, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case isNotFound(err):
		s.recorder.Record(ctx, audit.Event{
			Type:       audit.EventInvalidAdmin,
			AdminEmail: email,
			Details:    "Admin record not found",
		})
		return false
	default:
		obs.Logger().Error("admin validation failed", zap.String("email", email), zap.Error(err))
		s.recorder.Record(ctx, audit.Event{
			Type:       audit.EventValidationError,
			AdminEmail: email,
			Details:    err.Error(),
		})
		return false
	}

	if !admin.IsActive {
		s.recorder.Record(ctx, audit.Event{
			Type:       audit.EventInactiveAdmin,
			AdminEmail: email,
			Details:    "Admin account is inactive",
		})
		return false
	}
	return true
}

// Authenticate verifies credentials for login and stamps the last-login
// time. The error distinguishes bad credentials from inactive accounts so
// the API can log LOGIN_FAILED with the right detail, but both surface as
// an authentication failure to the operator.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Admin, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Admin{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	admin, err := s.store.FindByEmail(ctx, email)
	if isNotFound(err) {
		return Admin{}, ErrInvalidCredentials
	}
	if err != nil {
		return Admin{}, fmt.Errorf("lookup admin: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return Admin{}, ErrInvalidCredentials
	}
	if !admin.IsActive {
		s.recorder.Record(ctx, audit.Event{
			Type:       audit.EventInactiveAdmin,
			AdminEmail: email,
			Details:    "Admin account is inactive",
		})
		return Admin{}, ErrInactive
	}

	now := s.now().UTC()
	if err := s.store.SetLastLogin(ctx, admin.ID, now); err != nil {
		obs.Logger().Warn("last login stamp failed", zap.String("admin_id", admin.ID), zap.Error(err))
	}
	admin.LastLogin = &now
	return admin, nil
}

// Create provisions a new admin: an identity-provider credential plus a
// directory record. Role defaults to admin.
func (s *Service) Create(ctx context.Context, actor, email, displayName, password, role string) (Admin, error) {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return Admin{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return Admin{}, fmt.Errorf("%w: display name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(password) == "" {
		return Admin{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if role == "" {
		role = session.RoleAdmin
	}
	if !session.KnownRole(role) {
		return Admin{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return Admin{}, ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Admin{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.idp.CreateCredential(ctx, email, password); err != nil {
		return Admin{}, fmt.Errorf("create credential: %w", err)
	}

	admin := Admin{
		ID:           ids.New(),
		Email:        email,
		DisplayName:  displayName,
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
		CreatedBy:    actor,
	}
	if err := s.store.Insert(ctx, admin); err != nil {
		// Roll back the credential so a retry is possible.
		if derr := s.idp.DeleteCredential(ctx, email); derr != nil {
			obs.Logger().Warn("orphaned credential after insert failure",
				zap.String("email", email), zap.Error(derr))
		}
		return Admin{}, err
	}

	s.recorder.Record(ctx, audit.Event{
		Type:       audit.EventAdminCreated,
		AdminEmail: actor,
		Details:    "Created admin " + email + " with role " + role,
	})
	return admin, nil
}

// SetActive activates or deactivates an admin account.
func (s *Service) SetActive(ctx context.Context, actor, id string, active bool) error {
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return err
	}
	detail := "Deactivated admin " + id
	if active {
		detail = "Activated admin " + id
	}
	s.recorder.Record(ctx, audit.Event{
		Type:       audit.EventAdminStatusChanged,
		AdminEmail: actor,
		Details:    detail,
	})
	return nil
}

// Remove deletes the admin record. The identity-provider credential is
// removed best-effort.
func (s *Service) Remove(ctx context.Context, actor, id string) error {
	admin, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.idp.DeleteCredential(ctx, admin.Email); err != nil {
		obs.Logger().Debug("credential delete skipped", zap.String("email", admin.Email), zap.Error(err))
	}
	s.recorder.Record(ctx, audit.Event{
		Type:       audit.EventAdminRemoved,
		AdminEmail: actor,
		Details:    "Removed admin " + admin.Email,
	})
	return nil
}

// SignOut revokes the admin's credential session at the identity provider.
// Best-effort: a provider failure is logged and the console logout still
// completes.
func (s *Service) SignOut(ctx context.Context, email string) {
	email = normalizeEmail(email)
	if email == "" {
		return
	}
	if err := s.idp.SignOut(ctx, email); err != nil {
		obs.Logger().Debug("identity sign-out failed", zap.String("email", email), zap.Error(err))
	}
}

// List returns all admin records, active and inactive.
func (s *Service) List(ctx context.Context) ([]Admin, error) {
	return s.store.List(ctx)
}

// Find returns a single admin record by ID.
func (s *Service) Find(ctx context.Context, id string) (Admin, error) {
	return s.store.Find(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
