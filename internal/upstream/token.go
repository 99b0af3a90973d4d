package upstream

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenTimeout = 30 * time.Second

// Credentials identify this gateway to the upstream token endpoint.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// TokenManager acquires a bearer token with the client-credentials grant and
// keeps the last one in a single slot. Expiry is never tracked; a 401 from a
// business call is the only refresh trigger.
//
// Two callers that both see a rejected token will each re-authenticate. Any
// token the endpoint issues is valid, so the last writer wins.
type TokenManager struct {
	conf   clientcredentials.Config
	http   *http.Client
	logger *log.Logger

	mu    sync.RWMutex
	token string
}

// NewTokenManager builds a manager for {baseURL}/oauth2/token.
func NewTokenManager(baseURL string, creds Credentials, httpClient *http.Client, logger *log.Logger) *TokenManager {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TokenManager{
		conf: clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     strings.TrimRight(baseURL, "/") + "/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		http:   httpClient,
		logger: logger,
	}
}

// EnsureToken returns the cached token, authenticating only when none exists.
func (m *TokenManager) EnsureToken(ctx context.Context) (string, error) {
	if tok := m.cached(); tok != "" {
		return tok, nil
	}
	return m.Authenticate(ctx)
}

// Authenticate always calls the token endpoint and replaces the cached token.
func (m *TokenManager) Authenticate(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.http)

	m.logger.Printf("[upstream] requesting OAuth2 token from %s", m.conf.TokenURL)
	tok, err := m.conf.Token(ctx)
	if err != nil {
		authErr := &AuthError{Err: err}
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			authErr.Status = rErr.Response.StatusCode
			authErr.Body = string(rErr.Body)
		}
		m.logger.Printf("[upstream] token request failed: %v", authErr)
		return "", authErr
	}

	m.store(tok.AccessToken)
	m.logger.Printf("[upstream] OAuth2 token obtained")
	return tok.AccessToken, nil
}

// cached and store are the only accessors of the token slot.
func (m *TokenManager) cached() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *TokenManager) store(tok string) {
	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()
}
