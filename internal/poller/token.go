package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// expirySkew renews issued tokens slightly before they expire.
const expirySkew = 30 * time.Second

// TokenSource provides the credential sent in the auth header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed credential.
type StaticToken string

// Token implements [TokenSource].
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// IssuedTokenConfig configures an [IssuedTokens] source.
type IssuedTokenConfig struct {
	URL      string
	Username string
	Password string

	// Client defaults to a client with a 20s timeout.
	Client *http.Client

	// Now defaults to time.Now.
	Now func() time.Time
}

// IssuedTokens obtains tokens from an issuing endpoint by posting
// {"email", "password"} and reading "auth_token" from the JSON reply.
//
// Tokens that are JWTs carrying an "exp" claim are cached until shortly
// before they expire, and concurrent renewals share one request. Any other
// token is requested again for every poll, independently per caller.
type IssuedTokens struct {
	cfg IssuedTokenConfig

	renew singleflight.Group

	mu       sync.Mutex
	token    string
	expires  time.Time
	expiring bool
}

var _ TokenSource = (*IssuedTokens)(nil)

// NewIssuedTokens creates an issuing token source.
func NewIssuedTokens(cfg IssuedTokenConfig) *IssuedTokens {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &IssuedTokens{cfg: cfg}
}

// Token implements [TokenSource]. The issuing request runs without holding
// the cache lock, so callers never queue behind each other's requests.
func (s *IssuedTokens) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	token, expires, expiring := s.token, s.expires, s.expiring
	s.mu.Unlock()

	if token != "" && s.cfg.Now().Before(expires.Add(-expirySkew)) {
		return token, nil
	}
	if !expiring {
		return s.issue(ctx)
	}

	ch := s.renew.DoChan("renew", func() (any, error) {
		// shared by every waiter, so one caller's cancellation must not
		// fail the others; the client timeout still bounds it
		return s.issue(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// issue requests a token and caches it.
func (s *IssuedTokens) issue(ctx context.Context) (string, error) {
	token, err := s.request(ctx)
	if err != nil {
		return "", err
	}

	expires := tokenExpiry(token)
	s.mu.Lock()
	s.token, s.expires, s.expiring = token, expires, !expires.IsZero()
	s.mu.Unlock()
	return token, nil
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AuthToken string `json:"auth_token"`
}

func (s *IssuedTokens) request(ctx context.Context) (string, error) {
	body, err := json.Marshal(tokenRequest{Email: s.cfg.Username, Password: s.cfg.Password})
	if err != nil {
		return "", fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("token request failed: status %d", resp.StatusCode)
	}

	var out tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if out.AuthToken == "" {
		return "", errors.New("token response has no auth_token")
	}
	return out.AuthToken, nil
}

// tokenExpiry returns the exp claim of a JWT, or the zero time when the
// token is not a JWT or carries no expiry. The signature is not verified;
// the token is only forwarded.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
