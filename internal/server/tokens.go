package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ryoforge/backend/internal/config"
)

// Token verification failures. Their messages are safe to show to callers.
var (
	ErrInvalidToken  = errors.New("Invalid bearer token")
	ErrTokenAudience = errors.New("Invalid token audience")
	ErrTokenIssuer   = errors.New("Invalid token issuer")
	ErrTokenSubject  = errors.New("Token subject missing")
)

// TokenIssuer signs and verifies the app's session tokens. The token carries
// the identity provider's external id as subject plus the display fields.
type TokenIssuer struct {
	secret    []byte
	algorithm string
	audience  string
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenIssuer(cfg config.Config, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{
		secret:    []byte(cfg.JWTSecret),
		algorithm: strings.TrimSpace(cfg.JWTAlgorithm),
		audience:  strings.TrimSpace(cfg.JWTAudience),
		issuer:    strings.TrimSpace(cfg.JWTIssuer),
		ttl:       cfg.JWTTTL(),
		now:       now,
	}
}

func (t *TokenIssuer) Issue(id Identity) (string, time.Time, error) {
	method := jwt.GetSigningMethod(t.algorithm)
	if method == nil {
		return "", time.Time{}, fmt.Errorf("unsupported signing method %q", t.algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return "", time.Time{}, fmt.Errorf("signing method %q needs an asymmetric key", t.algorithm)
	}

	issuedAt := t.now().UTC()
	expiresAt := issuedAt.Add(t.ttl)
	claims := jwt.MapClaims{
		"sub":     id.ExternalID,
		"email":   id.Email,
		"name":    id.Name,
		"picture": id.Picture,
		"iat":     issuedAt.Unix(),
		"exp":     expiresAt.Unix(),
	}
	if t.audience != "" {
		claims["aud"] = t.audience
	}
	if t.issuer != "" {
		claims["iss"] = t.issuer
	}

	signed, err := jwt.NewWithClaims(method, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (t *TokenIssuer) Verify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(
		tokenString,
		func(token *jwt.Token) (any, error) {
			if token.Method == nil || token.Method.Alg() != t.algorithm {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	if t.audience != "" && !claimHasAudience(claims["aud"], t.audience) {
		return Identity{}, ErrTokenAudience
	}
	if t.issuer != "" {
		issuer, _ := claims["iss"].(string)
		if issuer != t.issuer {
			return Identity{}, ErrTokenIssuer
		}
	}
	sub, _ := claims["sub"].(string)
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return Identity{}, ErrTokenSubject
	}

	return Identity{
		ExternalID: sub,
		Email:      claimString(claims, "email"),
		Name:       claimString(claims, "name"),
		Picture:    claimString(claims, "picture"),
	}, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return strings.TrimSpace(value)
}

func claimHasAudience(value any, audience string) bool {
	switch v := value.(type) {
	case string:
		return v == audience
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == audience {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == audience {
				return true
			}
		}
	}
	return false
}
