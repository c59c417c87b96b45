// Package auth builds OAuth2 authorized HTTP clients for the Bid Manager API.
package auth

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/j-veylop/bidmanager-cli/internal/config"
)

// Scopes requested for the API and for reading reports from Cloud Storage.
const (
	ScopeBidManager      = "https://www.googleapis.com/auth/doubleclickbidmanager"
	ScopeStorageReadOnly = "https://www.googleapis.com/auth/devstorage.read_only"
)

// ErrIncompleteCredentials is returned when a credential field is empty.
var ErrIncompleteCredentials = errors.New("client id, client secret and refresh token are required")

// tokenEndpoint is replaced in tests.
var tokenEndpoint = google.Endpoint

// NewConfig returns the OAuth2 client configuration for creds.
func NewConfig(creds config.Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     tokenEndpoint,
		Scopes:       []string{ScopeBidManager, ScopeStorageReadOnly},
	}
}

// TokenSource returns a token source that exchanges the stored refresh token
// for access tokens on first use and again whenever they expire. Token
// requests go through base when it is non-nil.
func TokenSource(ctx context.Context, base *http.Client, creds config.Credentials) (oauth2.TokenSource, error) {
	if !creds.Complete() {
		return nil, ErrIncompleteCredentials
	}
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	ts := NewConfig(creds).TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	return oauth2.ReuseTokenSource(nil, ts), nil
}

// NewHTTPClient returns a client that authorizes every request with a
// bearer token from ts. The base client's transport and timeout are kept.
func NewHTTPClient(ctx context.Context, base *http.Client, ts oauth2.TokenSource) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	client := oauth2.NewClient(ctx, ts)
	if base != nil {
		client.Timeout = base.Timeout
	}
	return client
}
