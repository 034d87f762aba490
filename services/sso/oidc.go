package sso

import (
	"context"
	stderrors "errors"
	"net"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/identity"
)

// OIDCProvider verifies provider-issued bearer tokens against the
// school's OpenID Connect tenant and remembers the profile claims it
// has seen so unprovisioned identities can still be described.
type OIDCProvider struct {
	verifier *oidc.IDTokenVerifier
	logger   core.Logger

	mu   sync.RWMutex
	seen map[string]identity.Metadata
}

var _ identity.Provider = (*OIDCProvider)(nil)

// NewOIDCProvider discovers the tenant's endpoints from its issuer URL.
func NewOIDCProvider(ctx context.Context, conf *core.Config, logger core.Logger) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, conf.Provider.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "discovering OIDC provider")
	}
	return &OIDCProvider{
		verifier: provider.Verifier(&oidc.Config{ClientID: conf.Provider.ClientID}),
		logger:   logger,
		seen:     make(map[string]identity.Metadata),
	}, nil
}

type providerClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"` // custom claim set by the tenant admin
}

func (p *OIDCProvider) IntrospectToken(ctx context.Context, bearer string) (identity.Introspection, error) {
	idToken, err := p.verifier.Verify(ctx, bearer)
	if err != nil {
		var netErr net.Error
		if ctx.Err() != nil || stderrors.As(err, &netErr) {
			return identity.Introspection{}, identity.ErrServiceUnavailable
		}
		return identity.Introspection{}, errors.Wrap(err, "verifying provider token")
	}

	var claims providerClaims
	if err = idToken.Claims(&claims); err != nil {
		return identity.Introspection{}, errors.Wrap(err, "parsing provider claims")
	}
	p.remember(idToken.Subject, claims)
	return identity.Introspection{ExternalID: idToken.Subject, Email: claims.Email}, nil
}

// GetUserMetadata serves the claims captured at introspection time.
// OIDC has no standard by-subject lookup, so an identity never seen on
// this instance reports no metadata.
func (p *OIDCProvider) GetUserMetadata(ctx context.Context, externalID string) (identity.Metadata, error) {
	p.mu.RLock()
	md, ok := p.seen[externalID]
	p.mu.RUnlock()
	if !ok {
		return identity.Metadata{}, errors.Errorf("no metadata for identity %q", externalID)
	}
	return md, nil
}

func (p *OIDCProvider) remember(subject string, claims providerClaims) {
	p.mu.Lock()
	p.seen[subject] = identity.Metadata{
		Name:     claims.Name,
		Email:    claims.Email,
		RoleHint: identity.Role(claims.Role),
	}
	p.mu.Unlock()
}

// DisabledProvider rejects every provider token. It stands in when no
// OIDC issuer is configured and only locally-issued tokens are accepted.
type DisabledProvider struct{}

var _ identity.Provider = DisabledProvider{}

func (DisabledProvider) IntrospectToken(ctx context.Context, bearer string) (identity.Introspection, error) {
	return identity.Introspection{}, errors.New("no identity provider configured")
}

func (DisabledProvider) GetUserMetadata(ctx context.Context, externalID string) (identity.Metadata, error) {
	return identity.Metadata{}, errors.New("no identity provider configured")
}
