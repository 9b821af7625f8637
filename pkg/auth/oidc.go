package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
	claim    string
}

// NewOIDCVerifier discovers the issuer and returns a verifier that maps a
// validated token to the configured identity claim, falling back to subject.
func NewOIDCVerifier(ctx context.Context, cfg *Config) (TokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover issuer %s: %w", cfg.Issuer, err)
	}

	return &oidcVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		claim:    cfg.IdentityClaim,
	}, nil
}

func (v *oidcVerifier) Identity(ctx context.Context, token string) (string, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	if s, ok := claims[v.claim].(string); ok && s != "" {
		return s, nil
	}
	if idToken.Subject != "" {
		return idToken.Subject, nil
	}
	return "", ErrUnauthenticated
}
