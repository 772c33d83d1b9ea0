package auth

import (
	"chat-presence/domain/presence"
	"chat-presence/errors"
	"context"
	"fmt"
	"strings"
)

// Identity is what a verified credential says about its bearer.
type Identity struct {
	PrincipalID presence.PrincipalID
	Roles       []string
}

// JWTVerifier turns a handshake credential into the principal it was issued to.
type JWTVerifier struct {
	tokens *TokenManager
}

func NewJWTVerifier(tokens *TokenManager) *JWTVerifier {
	return &JWTVerifier{tokens: tokens}
}

// Verify accepts a raw token or a "Bearer <token>" value.
// Invalid, expired and malformed tokens all fail with ErrAuthentication.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (presence.PrincipalID, error) {
	identity, err := v.Identify(ctx, token)
	if err != nil {
		return "", err
	}
	return identity.PrincipalID, nil
}

// Identify is Verify keeping the roles carried by the token.
func (v *JWTVerifier) Identify(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return Identity{}, errors.ErrMissingToken
	}

	claims, err := v.tokens.Validate(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", errors.ErrAuthentication, err)
	}
	if claims.UserID == "" {
		return Identity{}, fmt.Errorf("%w: token has no user id", errors.ErrAuthentication)
	}
	return Identity{PrincipalID: presence.PrincipalID(claims.UserID), Roles: claims.Roles}, nil
}
