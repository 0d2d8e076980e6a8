package social

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/oauth2"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// OAuth2Service es el AuthenticationService de un provider OAuth2.
type OAuth2Service[A any] struct {
	factory *connect.OAuth2ConnectionFactory[A]
	states  *StateSigner
	policy  CardinalityPolicy
}

var _ AuthenticationService = (*OAuth2Service[any])(nil)

// NewOAuth2Service crea el servicio; states es obligatorio.
func NewOAuth2Service[A any](f *connect.OAuth2ConnectionFactory[A], states *StateSigner, policy CardinalityPolicy) *OAuth2Service[A] {
	return &OAuth2Service[A]{factory: f, states: states, policy: policy}
}

func (s *OAuth2Service[A]) ProviderID() string        { return s.factory.ProviderID() }
func (s *OAuth2Service[A]) Policy() CardinalityPolicy { return s.policy }

func (s *OAuth2Service[A]) stateKey() string { return "social.oauth2.state." + s.ProviderID() }

func (s *OAuth2Service[A]) Start(ctx context.Context, sess SessionValues, req StartRequest) (string, error) {
	nonce, err := randomNonce()
	if err != nil {
		return "", err
	}
	state, err := s.states.SignState(StateClaims{Provider: s.ProviderID(), Flow: req.Flow, Nonce: nonce})
	if err != nil {
		return "", fmt.Errorf("social: sign state: %w", err)
	}
	if err := sess.Set(s.stateKey(), nonce); err != nil {
		return "", err
	}

	params := oauth2.NewParameters().SetRedirectURI(req.CallbackURL)
	scope := req.Scope
	if scope == "" {
		scope = s.factory.Scope
	}
	if scope != "" {
		params.SetScope(scope)
	}
	params.SetState(state)
	for k, vs := range req.Extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	ops := s.factory.OAuthOperations()
	if req.Flow == FlowSignIn {
		return ops.BuildAuthenticateURL(oauth2.AuthorizationCode, params), nil
	}
	return ops.BuildAuthorizeURL(oauth2.AuthorizationCode, params), nil
}

func (s *OAuth2Service[A]) IsCallback(q url.Values) bool {
	return q.Has("code") || q.Has("error")
}

func (s *OAuth2Service[A]) Complete(ctx context.Context, sess SessionValues, q url.Values, flow Flow, callbackURL string) (connect.Connection, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.oauth2"), logger.ProviderID(s.ProviderID()))

	var nonce string
	found, err := sess.Take(s.stateKey(), &nonce)
	if err != nil {
		return nil, err
	}

	if code := q.Get("error"); code != "" {
		return nil, &ProviderDeniedError{ProviderID: s.ProviderID(), Code: code, Description: q.Get("error_description")}
	}
	code := q.Get("code")
	if code == "" {
		return nil, ErrMissingCallbackParams
	}

	claims, err := s.states.ParseState(q.Get("state"))
	if err != nil {
		return nil, err
	}
	if claims.Provider != s.ProviderID() || claims.Flow != flow {
		return nil, ErrStateProvider
	}
	if !found || subtle.ConstantTimeCompare([]byte(nonce), []byte(claims.Nonce)) != 1 {
		return nil, ErrStateNonce
	}

	grant, err := s.factory.OAuthOperations().ExchangeForAccess(ctx, code, callbackURL, nil)
	if err != nil {
		log.Warn("code exchange failed", logger.Err(err))
		return nil, err
	}
	conn, err := s.factory.CreateConnection(ctx, grant)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
