package identity

import (
	"context"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

// Verify validates a bearer credential and yields the external identity
// behind it. Two credential formats are supported concurrently: a
// locally-issued HS256 JWT (mobile clients; tried first, no network
// dependency) and a provider-issued token checked by introspection (web
// clients). Verification is read-only.
func (svc *Service) Verify(ctx context.Context, bearer string) (VerifiedIdentity, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return VerifiedIdentity{}, errors.Wrap(ErrUnauthenticated, "no bearer credential supplied")
	}

	if claims, err := svc.VerifyLocalToken(bearer); err == nil {
		return VerifiedIdentity{
			ExternalID: claims.Subject,
			Email:      claims.Email,
			RoleHint:   Role(claims.Role),
			Source:     SourceLocal,
		}, nil
	}

	// local verification failed; fall back to provider introspection,
	// bounded so a provider hang cannot hang the request
	ctx, cancel := context.WithTimeout(ctx, svc.conf.Provider.Timeout)
	defer cancel()

	intro, err := svc.provider.IntrospectToken(ctx, bearer)
	if err != nil {
		if errors.Cause(err) == ErrServiceUnavailable || ctx.Err() != nil {
			return VerifiedIdentity{}, errors.Wrap(ErrServiceUnavailable, "introspecting token")
		}
		return VerifiedIdentity{}, errors.Wrap(ErrUnauthenticated, "both verification paths failed")
	}
	return VerifiedIdentity{
		ExternalID: intro.ExternalID,
		Email:      intro.Email,
		Source:     SourceProvider,
	}, nil
}

// VerifyLocalToken checks a locally-issued JWT's signature and standard
// claims and returns its payload.
func (svc *Service) VerifyLocalToken(token string) (*Claims, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(svc.conf.SecretKey), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parsing local token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid local token claims")
	}
	return claims, nil
}
