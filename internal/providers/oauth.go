package providers

import (
	"errors"

	xoauth2 "golang.org/x/oauth2"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/oauth1"
	"github.com/dropDatabas3/socialconnect/internal/oauth2"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

// Defaults son los endpoints y el scope propios de un provider.
type Defaults struct {
	AuthorizeURL    string
	AuthenticateURL string
	AccessTokenURL  string
	RequestTokenURL string
	APIBaseURL      string
	Scope           string
	AuthStyle       xoauth2.AuthStyle
	Version         oauth1.Version
}

// BuildOAuth2 arma factory y service de un provider OAuth2. newAPI recibe
// un APIClient autorizado con el access token de la conexión.
func BuildOAuth2[A any](cfg Config, states *social.StateSigner, d Defaults, newAPI func(*APIClient) A, adapter connect.APIAdapter[A]) (Built, error) {
	if states == nil {
		return Built{}, errors.New("state signer required")
	}
	tmpl, err := oauth2.NewTemplate(oauth2.Config{
		ClientID:        cfg.ClientID,
		ClientSecret:    cfg.ClientSecret,
		AuthorizeURL:    Or(cfg.AuthorizeURL, d.AuthorizeURL),
		AuthenticateURL: Or(cfg.AuthenticateURL, d.AuthenticateURL),
		AccessTokenURL:  Or(cfg.AccessTokenURL, d.AccessTokenURL),
		AuthStyle:       d.AuthStyle,
		HTTPClient:      cfg.HTTPClient,
	})
	if err != nil {
		return Built{}, err
	}
	style := oauth2.ParseHeaderStyle(cfg.HeaderStyle)
	base := Or(cfg.APIBaseURL, d.APIBaseURL)
	sp := connect.NewOAuth2ServiceProvider[A](instrumentOAuth2(cfg, tmpl), func(token string) A {
		return newAPI(NewAPIClient(cfg, base, oauth2.NewClient(cfg.HTTPClient, token, style)))
	})
	f := connect.NewOAuth2ConnectionFactory[A](cfg.ProviderID(), sp, adapter)
	f.Scope = Or(cfg.Scope, d.Scope)
	return Built{Factory: f, Service: social.NewOAuth2Service(f, states, cfg.Policy())}, nil
}

// BuildOAuth1 arma factory y service de un provider OAuth1.
func BuildOAuth1[A any](cfg Config, d Defaults, newAPI func(*APIClient) A, adapter connect.APIAdapter[A]) (Built, error) {
	version := d.Version
	if cfg.OAuthVersion != "" {
		version = oauth1.ParseVersion(cfg.OAuthVersion)
	}
	tmpl, err := oauth1.NewTemplate(oauth1.Config{
		ConsumerKey:     cfg.ClientID,
		ConsumerSecret:  cfg.ClientSecret,
		RequestTokenURL: Or(cfg.RequestTokenURL, d.RequestTokenURL),
		AuthorizeURL:    Or(cfg.AuthorizeURL, d.AuthorizeURL),
		AuthenticateURL: Or(cfg.AuthenticateURL, d.AuthenticateURL),
		AccessTokenURL:  Or(cfg.AccessTokenURL, d.AccessTokenURL),
		Version:         version,
		HTTPClient:      cfg.HTTPClient,
	})
	if err != nil {
		return Built{}, err
	}
	base := Or(cfg.APIBaseURL, d.APIBaseURL)
	sp := connect.NewOAuth1ServiceProvider[A](instrumentOAuth1(cfg, tmpl), func(token, secret string) A {
		hc := oauth1.NewClient(cfg.HTTPClient, tmpl.Signer(), &oauth1.Token{Value: token, Secret: secret})
		return newAPI(NewAPIClient(cfg, base, hc))
	})
	f := connect.NewOAuth1ConnectionFactory[A](cfg.ProviderID(), sp, adapter)
	return Built{Factory: f, Service: social.NewOAuth1Service(f, cfg.Policy())}, nil
}
