package launchpad

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultWebURL is the production site root hosting the OAuth endpoints.
const DefaultWebURL = "https://launchpad.net/"

const oauthRealm = "https://api.launchpad.net/"

var (
	// ErrNoDisplay is returned when authorization is attempted without a display session.
	ErrNoDisplay = errors.New("X11 disabled or DISPLAY variable unset")
	// ErrAuthorizationDeclined is returned when the user does not confirm the token authorization.
	ErrAuthorizationDeclined = errors.New("can't proceed without Launchpad credential")
)

// AuthFunc modifies an HTTP request to apply authentication.
type AuthFunc func(r *http.Request)

// Credentials is an OAuth consumer plus access token pair.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// Valid reports whether c carries an access token.
func (c Credentials) Valid() bool {
	return c.ConsumerKey != "" && c.AccessToken != ""
}

// NewAnonymousAuth signs requests as an anonymous consumer.
func NewAnonymousAuth(consumer string) AuthFunc {
	consumer = strings.TrimSpace(consumer)
	return func(r *http.Request) {
		r.Header.Set("Authorization", oauthHeader(consumer, "", "&"))
	}
}

// NewOAuthAuth signs requests with the given access token.
func NewOAuthAuth(c Credentials) AuthFunc {
	sig := plaintextSignature(c.ConsumerSecret, c.AccessSecret)
	return func(r *http.Request) {
		r.Header.Set("Authorization", oauthHeader(c.ConsumerKey, c.AccessToken, sig))
	}
}

// plaintextSignature builds a PLAINTEXT signature from both secrets.
func plaintextSignature(consumerSecret, tokenSecret string) string {
	return percentEncode(consumerSecret) + "&" + percentEncode(tokenSecret)
}

// oauthHeader renders an OAuth 1.0 PLAINTEXT Authorization header value.
func oauthHeader(consumer, token, signature string) string {
	parts := []string{
		fmt.Sprintf(`realm="%s"`, oauthRealm),
		fmt.Sprintf(`oauth_consumer_key="%s"`, percentEncode(consumer)),
		fmt.Sprintf(`oauth_token="%s"`, percentEncode(token)),
		`oauth_signature_method="PLAINTEXT"`,
		fmt.Sprintf(`oauth_signature="%s"`, percentEncode(signature)),
		fmt.Sprintf(`oauth_timestamp="%d"`, time.Now().Unix()),
		fmt.Sprintf(`oauth_nonce="%s"`, uuid.NewString()),
		`oauth_version="1.0"`,
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// percentEncode escapes s per RFC 3986 as OAuth requires.
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Authorizer runs the interactive OAuth token handshake against the Launchpad site.
type Authorizer struct {
	WebURL      *url.URL     // Site root, e.g. https://launchpad.net/
	ConsumerKey string       // Application name shown to the user
	Client      *http.Client // HTTP client for the token endpoints
	Getenv      func(string) string

	// Confirm is shown the authorization URL and reports whether the user
	// approved the token in a browser.
	Confirm func(authorizeURL string) (bool, error)
}

// NewAuthorizer returns an Authorizer for the site at webURL. Confirm must be set by the caller.
func NewAuthorizer(webURL *url.URL, consumer string, timeout time.Duration, skipTLSVerify bool, getenv func(string) string) *Authorizer {
	return &Authorizer{
		WebURL:      webURL,
		ConsumerKey: consumer,
		Client:      newHTTPClient(timeout, skipTLSVerify),
		Getenv:      getenv,
	}
}

// Authorize obtains an access token. It requires a display session because
// the user has to approve the request token in a browser.
func (a *Authorizer) Authorize(ctx context.Context) (Credentials, error) {
	getenv := a.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if strings.TrimSpace(getenv("DISPLAY")) == "" {
		return Credentials{}, ErrNoDisplay
	}

	reqToken, err := a.postForm(ctx, "+request-token", url.Values{
		"oauth_consumer_key":     {a.ConsumerKey},
		"oauth_signature_method": {"PLAINTEXT"},
		"oauth_signature":        {"&"},
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("request token: %w", err)
	}
	token, secret := reqToken.Get("oauth_token"), reqToken.Get("oauth_token_secret")
	if token == "" {
		return Credentials{}, fmt.Errorf("request token: empty oauth_token in response")
	}

	authorizeURL := a.WebURL.ResolveReference(&url.URL{
		Path:     "+authorize-token",
		RawQuery: url.Values{"oauth_token": {token}}.Encode(),
	}).String()

	if a.Confirm == nil {
		return Credentials{}, ErrAuthorizationDeclined
	}
	ok, err := a.Confirm(authorizeURL)
	if err != nil {
		return Credentials{}, fmt.Errorf("confirm authorization: %w", err)
	}
	if !ok {
		return Credentials{}, ErrAuthorizationDeclined
	}

	access, err := a.postForm(ctx, "+access-token", url.Values{
		"oauth_consumer_key":     {a.ConsumerKey},
		"oauth_token":            {token},
		"oauth_signature_method": {"PLAINTEXT"},
		"oauth_signature":        {"&" + secret},
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("access token: %w", err)
	}

	creds := Credentials{
		ConsumerKey:  a.ConsumerKey,
		AccessToken:  access.Get("oauth_token"),
		AccessSecret: access.Get("oauth_token_secret"),
	}
	if !creds.Valid() {
		return Credentials{}, fmt.Errorf("access token: empty oauth_token in response")
	}
	return creds, nil
}

// postForm posts form to path below WebURL and parses the form-encoded reply.
func (a *Authorizer) postForm(ctx context.Context, path string, form url.Values) (url.Values, error) {
	target := a.WebURL.ResolveReference(&url.URL{Path: path}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Content-Length", strconv.Itoa(len(form.Encode())))

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("launchpad error: %d: %s", resp.StatusCode, string(trim(body, 2048)))
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return values, nil
}

// LoginWith discards any stored credential, runs the handshake and stores the
// new credential. The caller removes the stored file when done.
func LoginWith(ctx context.Context, store CredentialStore, a *Authorizer) (Credentials, error) {
	_ = store.Remove() // stale credentials are never reused

	creds, err := a.Authorize(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if err := store.Save(creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: %w", ErrAuthorizationDeclined, err)
	}
	return creds, nil
}
