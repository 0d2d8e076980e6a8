// Package oauth2 implements the client side of the OAuth 2.0 grants used to
// connect provider accounts: authorization code, implicit, resource owner
// password, refresh token and client credentials.
package oauth2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	xoauth2 "golang.org/x/oauth2"

	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// Operations is the OAuth2 protocol surface a connection factory depends on.
type Operations interface {
	BuildAuthorizeURL(grant GrantType, params *Parameters) string
	BuildAuthenticateURL(grant GrantType, params *Parameters) string
	ExchangeForAccess(ctx context.Context, code, redirectURI string, extra *Parameters) (*AccessGrant, error)
	ExchangeCredentialsForAccess(ctx context.Context, username, password string, extra *Parameters) (*AccessGrant, error)
	RefreshAccess(ctx context.Context, refreshToken string, extra *Parameters) (*AccessGrant, error)
	AuthenticateClient(ctx context.Context) (*AccessGrant, error)
	AuthenticateClientWithScope(ctx context.Context, scope string) (*AccessGrant, error)
}

// Config configures a Template.
type Config struct {
	ClientID     string
	ClientSecret string

	AuthorizeURL string
	// AuthenticateURL is optional; BuildAuthenticateURL falls back to AuthorizeURL.
	AuthenticateURL string
	AccessTokenURL  string

	// AuthStyle selects how client credentials reach the token endpoint.
	// AuthStyleInHeader (HTTP Basic) is the default; AuthStyleInParams sends
	// client_id/client_secret as form fields.
	AuthStyle xoauth2.AuthStyle

	HTTPClient *http.Client
}

// Template is the default Operations implementation.
type Template struct {
	clientID        string
	clientSecret    string
	authorizeURL    string
	authenticateURL string
	accessTokenURL  string
	useBasicAuth    bool
	http            *http.Client
}

var _ Operations = (*Template)(nil)

// NewTemplate validates cfg and builds a Template.
func NewTemplate(cfg Config) (*Template, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("oauth2: client id is required")
	}
	if strings.TrimSpace(cfg.AuthorizeURL) == "" || strings.TrimSpace(cfg.AccessTokenURL) == "" {
		return nil, errors.New("oauth2: authorize and access token URLs are required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	t := &Template{
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		authorizeURL:   withClientID(cfg.AuthorizeURL, cfg.ClientID),
		accessTokenURL: cfg.AccessTokenURL,
		useBasicAuth:   cfg.AuthStyle != xoauth2.AuthStyleInParams,
		http:           hc,
	}
	if cfg.AuthenticateURL != "" {
		t.authenticateURL = withClientID(cfg.AuthenticateURL, cfg.ClientID)
	}
	return t, nil
}

func withClientID(base, clientID string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "client_id=" + url.QueryEscape(clientID)
}

// BuildAuthorizeURL returns the provider redirect URL. response_type goes
// first, then params in insertion order.
func (t *Template) BuildAuthorizeURL(grant GrantType, params *Parameters) string {
	return buildAuthURL(t.authorizeURL, grant, params)
}

// BuildAuthenticateURL is the sign-in variant of BuildAuthorizeURL.
func (t *Template) BuildAuthenticateURL(grant GrantType, params *Parameters) string {
	if t.authenticateURL == "" {
		return t.BuildAuthorizeURL(grant, params)
	}
	return buildAuthURL(t.authenticateURL, grant, params)
}

func buildAuthURL(base string, grant GrantType, params *Parameters) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("&response_type=")
	b.WriteString(grant.responseType())
	if enc := params.Encode(); enc != "" {
		b.WriteByte('&')
		b.WriteString(enc)
	}
	return b.String()
}

// ExchangeForAccess redeems an authorization code.
func (t *Template) ExchangeForAccess(ctx context.Context, code, redirectURI string, extra *Parameters) (*AccessGrant, error) {
	p := NewParameters()
	p.Set("code", code)
	p.Set("redirect_uri", redirectURI)
	p.Set("grant_type", "authorization_code")
	return t.postForAccessGrant(ctx, t.merge(p, extra))
}

// ExchangeCredentialsForAccess runs the resource owner password grant.
func (t *Template) ExchangeCredentialsForAccess(ctx context.Context, username, password string, extra *Parameters) (*AccessGrant, error) {
	p := NewParameters()
	p.Set("username", username)
	p.Set("password", password)
	p.Set("grant_type", "password")
	return t.postForAccessGrant(ctx, t.merge(p, extra))
}

// RefreshAccess exchanges a refresh token for a new grant.
func (t *Template) RefreshAccess(ctx context.Context, refreshToken string, extra *Parameters) (*AccessGrant, error) {
	p := NewParameters()
	p.Set("refresh_token", refreshToken)
	p.Set("grant_type", "refresh_token")
	return t.postForAccessGrant(ctx, t.merge(p, extra))
}

// AuthenticateClient runs the client credentials grant.
func (t *Template) AuthenticateClient(ctx context.Context) (*AccessGrant, error) {
	return t.AuthenticateClientWithScope(ctx, "")
}

// AuthenticateClientWithScope runs the client credentials grant for scope.
func (t *Template) AuthenticateClientWithScope(ctx context.Context, scope string) (*AccessGrant, error) {
	p := NewParameters()
	p.Set("grant_type", "client_credentials")
	if scope != "" {
		p.Set("scope", scope)
	}
	return t.postForAccessGrant(ctx, t.merge(p, nil))
}

// merge adds client credentials when basic auth is off, then caller extras.
func (t *Template) merge(p, extra *Parameters) *Parameters {
	if !t.useBasicAuth {
		p.Set("client_id", t.clientID)
		p.Set("client_secret", t.clientSecret)
	}
	for _, k := range extra.Keys() {
		for _, v := range extra.values[k] {
			p.Add(k, v)
		}
	}
	return p
}

func (t *Template) postForAccessGrant(ctx context.Context, form *Parameters) (*AccessGrant, error) {
	grant := form.Get("grant_type")
	log := logger.From(ctx).With(logger.Component("oauth2.template"), logger.GrantType(grant))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.accessTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if t.useBasicAuth {
		req.SetBasicAuth(url.QueryEscape(t.clientID), url.QueryEscape(t.clientSecret))
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth2: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("oauth2: read token response: %w", err)
	}

	values := parseTokenResponse(resp.Header.Get("Content-Type"), body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := &Error{
			StatusCode:  resp.StatusCode,
			Code:        stringValue(values["error"]),
			Description: stringValue(values["error_description"]),
			Body:        string(body),
		}
		log.Warn("token endpoint rejected request", logger.Status(resp.StatusCode), logger.String("error", e.Code))
		return nil, e
	}

	accessToken := stringValue(values["access_token"])
	if accessToken == "" {
		log.Warn("token response without access_token")
		return nil, &Error{
			StatusCode:  resp.StatusCode,
			Code:        firstNonEmpty(stringValue(values["error"]), codeMissingAccessToken),
			Description: stringValue(values["error_description"]),
			Body:        string(body),
		}
	}

	scope, refresh := stringValue(values["scope"]), stringValue(values["refresh_token"])
	if secs, ok := parseExpiresIn(values["expires_in"]); ok {
		return NewExpiringAccessGrant(accessToken, scope, refresh, time.Duration(secs)*time.Second), nil
	}
	return NewAccessGrant(accessToken, scope, refresh, 0), nil
}

// parseTokenResponse accepts JSON and form-encoded bodies; some providers
// ignore Accept and answer the token endpoint with form content.
func parseTokenResponse(contentType string, body []byte) map[string]any {
	out := map[string]any{}
	mt, _, _ := mime.ParseMediaType(contentType)
	if mt == "application/x-www-form-urlencoded" {
		if vals, err := url.ParseQuery(string(body)); err == nil && len(vals) > 0 {
			for k := range vals {
				out[k] = vals.Get(k)
			}
			return out
		}
	}
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	if err := dec.Decode(&out); err == nil {
		return out
	}
	if vals, err := url.ParseQuery(string(body)); err == nil {
		for k := range vals {
			out[k] = vals.Get(k)
		}
	}
	return out
}

// parseExpiresIn coerces through the string form so both 3600 and "3600"
// work. ok is false for absent, null or unparsable values.
func parseExpiresIn(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
