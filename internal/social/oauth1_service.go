package social

import (
	"context"
	"net/url"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/oauth1"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// OAuth1Service es el AuthenticationService de un provider OAuth1.
type OAuth1Service[A any] struct {
	factory *connect.OAuth1ConnectionFactory[A]
	policy  CardinalityPolicy
}

var _ AuthenticationService = (*OAuth1Service[any])(nil)

func NewOAuth1Service[A any](f *connect.OAuth1ConnectionFactory[A], policy CardinalityPolicy) *OAuth1Service[A] {
	return &OAuth1Service[A]{factory: f, policy: policy}
}

func (s *OAuth1Service[A]) ProviderID() string        { return s.factory.ProviderID() }
func (s *OAuth1Service[A]) Policy() CardinalityPolicy { return s.policy }

func (s *OAuth1Service[A]) tokenKey() string {
	return "social.oauth1.request_token." + s.ProviderID()
}

// pendingToken es el request token guardado entre legs.
type pendingToken struct {
	Value  string `json:"value"`
	Secret string `json:"secret"`
	Flow   Flow   `json:"flow"`
}

func (s *OAuth1Service[A]) Start(ctx context.Context, sess SessionValues, req StartRequest) (string, error) {
	ops := s.factory.OAuthOperations()
	tok, err := ops.FetchRequestToken(ctx, req.CallbackURL, nil)
	if err != nil {
		return "", err
	}
	if err := sess.Set(s.tokenKey(), pendingToken{Value: tok.Value, Secret: tok.Secret, Flow: req.Flow}); err != nil {
		return "", err
	}

	params := oauth1.Parameters{CallbackURL: req.CallbackURL, Extra: req.Extra}
	if req.Flow == FlowSignIn {
		return ops.BuildAuthenticateURL(tok.Value, params), nil
	}
	return ops.BuildAuthorizeURL(tok.Value, params), nil
}

func (s *OAuth1Service[A]) IsCallback(q url.Values) bool {
	return q.Has("oauth_token") || q.Has("denied")
}

func (s *OAuth1Service[A]) Complete(ctx context.Context, sess SessionValues, q url.Values, flow Flow, _ string) (connect.Connection, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.oauth1"), logger.ProviderID(s.ProviderID()))

	var pending pendingToken
	found, err := sess.Take(s.tokenKey(), &pending)
	if err != nil {
		return nil, err
	}
	if q.Has("denied") {
		return nil, &ProviderDeniedError{ProviderID: s.ProviderID(), Code: "access_denied"}
	}
	token := q.Get("oauth_token")
	if token == "" {
		return nil, ErrMissingCallbackParams
	}
	if !found {
		return nil, ErrRequestTokenMissing
	}
	if pending.Value != token || pending.Flow != flow {
		return nil, ErrRequestTokenMismatch
	}

	authorized := oauth1.NewAuthorizedRequestToken(
		&oauth1.Token{Value: pending.Value, Secret: pending.Secret},
		q.Get("oauth_verifier"),
	)
	access, err := s.factory.OAuthOperations().ExchangeForAccessToken(ctx, authorized, nil)
	if err != nil {
		log.Warn("access token exchange failed", logger.Err(err))
		return nil, err
	}
	conn, err := s.factory.CreateConnection(ctx, access)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
