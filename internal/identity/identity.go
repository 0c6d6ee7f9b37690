// Package identity abstracts the credential backend the platform's clients
// authenticate against. The admin console only provisions and removes
// credentials; it never reads them back.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrExists   = errors.New("identity: credential already exists")
	ErrNotFound = errors.New("identity: credential not found")
)

// Provider is the narrow contract required from the identity backend.
type Provider interface {
	CreateCredential(ctx context.Context, email, password string) error
	// DeleteCredential is best-effort from the caller's perspective:
	// moderation flows tolerate and log failures here.
	DeleteCredential(ctx context.Context, email string) error
	SignOut(ctx context.Context, email string) error
}

// MemoryProvider is an in-process Provider for tests and local development.
type MemoryProvider struct {
	mu          sync.Mutex
	credentials map[string]string
	signOuts    map[string]int
	// FailDelete forces DeleteCredential to fail; lets tests exercise the
	// best-effort path.
	FailDelete bool
}

var _ Provider = (*MemoryProvider)(nil)

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{credentials: make(map[string]string)}
}

func (p *MemoryProvider) CreateCredential(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.credentials[email]; ok {
		return ErrExists
	}
	p.credentials[email] = password
	return nil
}

func (p *MemoryProvider) DeleteCredential(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailDelete {
		return errors.New("identity: delete not permitted for acting admin")
	}
	if _, ok := p.credentials[email]; !ok {
		return ErrNotFound
	}
	delete(p.credentials, email)
	return nil
}

func (p *MemoryProvider) SignOut(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signOuts == nil {
		p.signOuts = make(map[string]int)
	}
	p.signOuts[email]++
	return nil
}

// SignOuts reports how many sign-outs were issued for email. Test helper.
func (p *MemoryProvider) SignOuts(email string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signOuts[strings.ToLower(strings.TrimSpace(email))]
}

// Has reports whether a credential exists. Test helper.
func (p *MemoryProvider) Has(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.credentials[strings.ToLower(strings.TrimSpace(email))]
	return ok
}
