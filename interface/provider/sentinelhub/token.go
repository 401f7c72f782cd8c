package sentinelhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/airbusgeo/parcel-imagery/service/log"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// DefaultAuthURL is the token endpoint of Sentinel Hub
const DefaultAuthURL = "https://services.sentinel-hub.com/oauth/token"

// Credentials of a Sentinel Hub OAuth client
type Credentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // DefaultAuthURL if empty
}

// TokenManager holds the access token of the process api.
// The token is only renewed on demand, when a request is rejected with 401
type TokenManager struct {
	config     clientcredentials.Config
	httpClient *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time

	renewals singleflight.Group
}

// NewTokenManager performs the initial client-credentials exchange
// Raise *AuthenticationError
func NewTokenManager(ctx context.Context, httpClient *http.Client, creds Credentials) (*TokenManager, error) {
	if creds.TokenURL == "" {
		creds.TokenURL = DefaultAuthURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	tm := &TokenManager{
		config: clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
	}
	if err := tm.exchange(ctx); err != nil {
		return nil, err
	}
	return tm, nil
}

// Token returns the current access token
func (tm *TokenManager) Token() string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.token
}

// Expiry returns the expiry announced by the provider for the current token.
// It is informative only.
func (tm *TokenManager) Expiry() time.Time {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.expiry
}

// Renew replaces the stale token by a new one and returns it.
// If the current token is not stale anymore (another caller already renewed it), it is returned without exchange.
// Concurrent renewals share the same exchange.
// Raise *AuthenticationError
func (tm *TokenManager) Renew(ctx context.Context, stale string) (string, error) {
	if token := tm.Token(); token != stale {
		return token, nil
	}
	// The exchange is shared: it must not be cancelled with the caller that started it
	exchangeCtx := context.WithoutCancel(ctx)
	renewal := tm.renewals.DoChan("renew", func() (interface{}, error) {
		if token := tm.Token(); token != stale {
			return token, nil
		}
		if err := tm.exchange(exchangeCtx); err != nil {
			return "", err
		}
		return tm.Token(), nil
	})
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("Renew: %w", ctx.Err())
	case res := <-renewal:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (tm *TokenManager) exchange(ctx context.Context) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, tm.httpClient)
	token, err := tm.config.Token(ctx)
	if err != nil {
		tokenExchangesTotal.WithLabelValues("failure").Inc()
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			log.Logger(ctx).Warn("token exchange rejected", zap.Int("status", rerr.Response.StatusCode))
		}
		return &AuthenticationError{Err: err}
	}
	tokenExchangesTotal.WithLabelValues("success").Inc()

	tm.mu.Lock()
	tm.token = token.AccessToken
	tm.expiry = token.Expiry
	tm.mu.Unlock()

	log.Logger(ctx).Debug("sentinelhub token obtained", zap.Time("expiry", token.Expiry))
	return nil
}
