package email

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// OAuthCredential is one refreshable Gmail credential. An account may carry
// more than one, each of which is synced independently.
type OAuthCredential struct {
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
	RefreshToken string `json:"refresh_token" mapstructure:"refresh_token"`
	AccessToken  string `json:"access_token" mapstructure:"access_token"`
}

// Validate checks that the credential carries enough material to refresh.
func (c OAuthCredential) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client secret is required")
	}
	if c.RefreshToken == "" && c.AccessToken == "" {
		return fmt.Errorf("either refresh token or access token is required")
	}
	return nil
}

// CredentialProvider turns a stored credential into an authenticated HTTP
// client, refreshing the bearer token as needed. A refresh failure surfaces
// as *AuthError so sync can skip the account and continue.
type CredentialProvider interface {
	Client(ctx context.Context, account string, cred OAuthCredential) (*http.Client, error)
}

// OAuthCredentialProvider implements CredentialProvider on top of the
// standard oauth2 refresh flow against Google's token endpoint.
type OAuthCredentialProvider struct{}

// NewOAuthCredentialProvider creates the default credential provider.
func NewOAuthCredentialProvider() *OAuthCredentialProvider {
	return &OAuthCredentialProvider{}
}

// Client builds an authenticated HTTP client for one credential. The token is
// refreshed eagerly so that a dead credential fails here, per account, rather
// than mid-batch.
func (p *OAuthCredentialProvider) Client(ctx context.Context, account string, cred OAuthCredential) (*http.Client, error) {
	if err := cred.Validate(); err != nil {
		return nil, &AuthError{Account: account, Err: err}
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope, gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
	}

	source := oauthConfig.TokenSource(ctx, token)
	if _, err := source.Token(); err != nil {
		return nil, &AuthError{Account: account, Err: fmt.Errorf("token refresh failed: %w", err)}
	}

	return oauth2.NewClient(ctx, source), nil
}
