// Package oauth1 implements the consumer side of the OAuth 1.0 and 1.0a
// three-legged flow: request token, user authorization, access token.
package oauth1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// Operations is the OAuth1 protocol surface a connection factory depends on.
type Operations interface {
	Version() Version
	FetchRequestToken(ctx context.Context, callbackURL string, extra url.Values) (*Token, error)
	BuildAuthorizeURL(requestToken string, params Parameters) string
	BuildAuthenticateURL(requestToken string, params Parameters) string
	ExchangeForAccessToken(ctx context.Context, token *AuthorizedRequestToken, extra url.Values) (*Token, error)
}

// Config configures a Template.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string

	RequestTokenURL string
	AuthorizeURL    string
	// AuthenticateURL is optional; BuildAuthenticateURL falls back to AuthorizeURL.
	AuthenticateURL string
	AccessTokenURL  string

	Version    Version
	HTTPClient *http.Client
}

// Template is the default Operations implementation.
type Template struct {
	cfg    Config
	signer *Signer
	http   *http.Client
}

var _ Operations = (*Template)(nil)

// NewTemplate validates cfg and builds a Template.
func NewTemplate(cfg Config) (*Template, error) {
	if strings.TrimSpace(cfg.ConsumerKey) == "" {
		return nil, errors.New("oauth1: consumer key is required")
	}
	if cfg.RequestTokenURL == "" || cfg.AuthorizeURL == "" || cfg.AccessTokenURL == "" {
		return nil, errors.New("oauth1: request token, authorize and access token URLs are required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Template{
		cfg:    cfg,
		signer: NewSigner(cfg.ConsumerKey, cfg.ConsumerSecret),
		http:   hc,
	}, nil
}

// Signer exposes the consumer signer, used by API clients to sign calls.
func (t *Template) Signer() *Signer { return t.signer }

func (t *Template) Version() Version { return t.cfg.Version }

// FetchRequestToken obtains an unauthorized request token. Under 1.0 the
// callback is not sent here; it goes on the authorize URL instead.
func (t *Template) FetchRequestToken(ctx context.Context, callbackURL string, extra url.Values) (*Token, error) {
	proto := map[string]string{}
	if t.cfg.Version == Core10a {
		proto["oauth_callback"] = callbackURL
	}
	vals, err := t.exchange(ctx, "request_token", t.cfg.RequestTokenURL, proto, extra, "")
	if err != nil {
		return nil, err
	}
	tok := &Token{
		Value:             vals.Get("oauth_token"),
		Secret:            vals.Get("oauth_token_secret"),
		CallbackConfirmed: vals.Get("oauth_callback_confirmed") == "true",
	}
	return tok, nil
}

// BuildAuthorizeURL returns the URL the user is redirected to.
func (t *Template) BuildAuthorizeURL(requestToken string, params Parameters) string {
	return t.buildURL(t.cfg.AuthorizeURL, requestToken, params)
}

// BuildAuthenticateURL is the sign-in variant of BuildAuthorizeURL.
func (t *Template) BuildAuthenticateURL(requestToken string, params Parameters) string {
	if t.cfg.AuthenticateURL == "" {
		return t.BuildAuthorizeURL(requestToken, params)
	}
	return t.buildURL(t.cfg.AuthenticateURL, requestToken, params)
}

func (t *Template) buildURL(base, requestToken string, params Parameters) string {
	q := url.Values{}
	for k, vs := range params.Extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("oauth_token", requestToken)
	if t.cfg.Version == Core10 && params.CallbackURL != "" {
		q.Set("oauth_callback", params.CallbackURL)
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// ExchangeForAccessToken trades an authorized request token for an access
// token. Under 1.0a the verifier is mandatory.
func (t *Template) ExchangeForAccessToken(ctx context.Context, token *AuthorizedRequestToken, extra url.Values) (*Token, error) {
	if token == nil || token.Token == nil || token.Value == "" {
		return nil, errors.New("oauth1: authorized request token is required")
	}
	proto := map[string]string{"oauth_token": token.Value}
	if t.cfg.Version == Core10a {
		if token.Verifier == "" {
			return nil, &Error{StatusCode: http.StatusUnauthorized, Leg: "access_token", Body: "missing oauth_verifier"}
		}
		proto["oauth_verifier"] = token.Verifier
	}
	vals, err := t.exchange(ctx, "access_token", t.cfg.AccessTokenURL, proto, extra, token.Secret)
	if err != nil {
		return nil, err
	}
	return &Token{Value: vals.Get("oauth_token"), Secret: vals.Get("oauth_token_secret")}, nil
}

func (t *Template) exchange(ctx context.Context, leg, endpoint string, proto map[string]string, form url.Values, tokenSecret string) (url.Values, error) {
	log := logger.From(ctx).With(logger.Component("oauth1.template"), logger.Op(leg))

	header, err := t.signer.AuthorizationHeader(http.MethodPost, endpoint, proto, form, tokenSecret)
	if err != nil {
		return nil, fmt.Errorf("oauth1: sign %s: %w", leg, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth1: %s request: %w", leg, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("oauth1: read %s response: %w", leg, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("provider rejected oauth1 leg", logger.Status(resp.StatusCode))
		return nil, &Error{StatusCode: resp.StatusCode, Leg: leg, Body: string(body)}
	}
	vals, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil || vals.Get("oauth_token") == "" {
		log.Warn("oauth1 response without oauth_token")
		return nil, &Error{StatusCode: resp.StatusCode, Leg: leg, Body: string(body)}
	}
	return vals, nil
}
