package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// authFormKeys are the credential fields forwarded to the auth endpoint.
// The request form is rebuilt from the stored credential string instead of
// passing it through verbatim, so unexpected extra fields never leak.
var authFormKeys = []string{
	"androidId",
	"client_sig",
	"callerSig",
	"device_country",
	"Email",
	"google_play_services_version",
	"lang",
	"oauth2_foreground",
	"sdk_version",
	"service",
	"Token",
}

// authTimeout bounds one token exchange; the oauth2.TokenSource interface
// carries no caller context, so the deadline lives on the source
const authTimeout = 30 * time.Second

// TokenSource exchanges a long-lived device credential string for
// short-lived bearer tokens. It implements oauth2.TokenSource; renewal is
// driven purely by the stored expiry versus the current time, with no
// ambient session state.
type TokenSource struct {
	endpoint string
	authData url.Values
	client   *http.Client
	timeout  time.Duration
	now      func() time.Time
}

// NewTokenSource parses the device credential string (URL-encoded
// key/value form) and returns a caching token source for it.
func NewTokenSource(endpoint, authData string, client *http.Client) (oauth2.TokenSource, error) {
	if strings.TrimSpace(authData) == "" {
		return nil, fmt.Errorf("auth data cannot be empty")
	}
	parsed, err := url.ParseQuery(authData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse auth data: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	ts := &TokenSource{
		endpoint: endpoint,
		authData: parsed,
		client:   client,
		timeout:  authTimeout,
		now:      time.Now,
	}
	// ReuseTokenSource holds the token until expiry and serializes renewal
	return oauth2.ReuseTokenSource(nil, ts), nil
}

// Email returns the account email embedded in a credential string
func Email(authData string) string {
	parsed, err := url.ParseQuery(authData)
	if err != nil {
		return ""
	}
	return parsed.Get("Email")
}

// Token requests a fresh bearer token from the auth endpoint
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("app", "com.photomirror.client")
	form.Set("callerPkg", "com.photomirror.client")
	for _, key := range authFormKeys {
		if v := ts.authData.Get(key); v != "" {
			form.Set(key, v)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), ts.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Connection", "Keep-Alive")

	resp, err := ts.client.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "auth", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Op: "auth", StatusCode: resp.StatusCode, Err: fmt.Errorf("auth request rejected")}
	}

	fields, err := parseAuthResponse(resp)
	if err != nil {
		return nil, err
	}

	token := fields["Auth"]
	if token == "" {
		return nil, fmt.Errorf("auth response does not contain bearer token")
	}

	expiry := ts.now().Add(time.Hour)
	if raw := fields["Expiry"]; raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			expiry = time.Unix(unix, 0)
		}
	}

	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}

// parseAuthResponse reads the line-oriented key=value auth response body
func parseAuthResponse(resp *http.Response) (map[string]string, error) {
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth response: %w", err)
	}

	fields := make(map[string]string)
	for _, line := range strings.Split(string(buf), "\n") {
		if key, value, ok := strings.Cut(strings.TrimSpace(line), "="); ok {
			fields[key] = value
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("auth response is empty")
	}
	return fields, nil
}
