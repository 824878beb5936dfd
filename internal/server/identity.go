package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Identity is who the identity provider says the caller is.
type Identity struct {
	ExternalID string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
}

type IdentityProvider interface {
	FetchIdentity(ctx context.Context, accessToken string) (Identity, error)
}

var errEmptyAccessToken = errors.New("access token is empty")

// GoogleIdentityProvider resolves a Google OAuth access token through the
// userinfo endpoint.
type GoogleIdentityProvider struct {
	opts []option.ClientOption
}

// NewGoogleIdentityProvider accepts extra client options; tests use
// option.WithEndpoint to point it at a local server.
func NewGoogleIdentityProvider(opts ...option.ClientOption) *GoogleIdentityProvider {
	return &GoogleIdentityProvider{opts: opts}
}

func (p *GoogleIdentityProvider) FetchIdentity(ctx context.Context, accessToken string) (Identity, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return Identity{}, errEmptyAccessToken
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(tokenSource)}, p.opts...)
	service, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("create userinfo client: %w", err)
	}

	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Identity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	if strings.TrimSpace(info.Id) == "" {
		return Identity{}, errors.New("userinfo response has no id")
	}
	return Identity{
		ExternalID: strings.TrimSpace(info.Id),
		Email:      strings.TrimSpace(info.Email),
		Name:       strings.TrimSpace(info.Name),
		Picture:    strings.TrimSpace(info.Picture),
	}, nil
}
