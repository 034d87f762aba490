// Package dummy provides an in-memory token provider for tests and
// local development.
package dummy

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/identity"
)

// Provider maps opaque bearer strings to identities. Register tokens up
// front; anything else fails introspection.
type Provider struct {
	mu     sync.RWMutex
	tokens map[string]identity.Introspection
	users  map[string]identity.Metadata
	down   bool
}

var _ identity.Provider = (*Provider)(nil)

func NewProvider() *Provider {
	return &Provider{
		tokens: make(map[string]identity.Introspection),
		users:  make(map[string]identity.Metadata),
	}
}

// Register makes bearer introspect to the given identity.
func (p *Provider) Register(bearer, externalID, email string) {
	p.mu.Lock()
	p.tokens[bearer] = identity.Introspection{ExternalID: externalID, Email: email}
	p.mu.Unlock()
}

// SetMetadata sets the provider-side profile for an identity.
func (p *Provider) SetMetadata(externalID string, md identity.Metadata) {
	p.mu.Lock()
	p.users[externalID] = md
	p.mu.Unlock()
}

// SetDown makes all calls fail with ErrServiceUnavailable.
func (p *Provider) SetDown(down bool) {
	p.mu.Lock()
	p.down = down
	p.mu.Unlock()
}

func (p *Provider) IntrospectToken(ctx context.Context, bearer string) (identity.Introspection, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.down {
		return identity.Introspection{}, identity.ErrServiceUnavailable
	}
	intro, ok := p.tokens[bearer]
	if !ok {
		return identity.Introspection{}, errors.New("unknown token")
	}
	return intro, nil
}

func (p *Provider) GetUserMetadata(ctx context.Context, externalID string) (identity.Metadata, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.down {
		return identity.Metadata{}, identity.ErrServiceUnavailable
	}
	md, ok := p.users[externalID]
	if !ok {
		return identity.Metadata{}, errors.Errorf("no metadata for identity %q", externalID)
	}
	return md, nil
}
