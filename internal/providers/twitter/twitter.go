// Package twitter implementa el provider OAuth1.0a de Twitter.
package twitter

import (
	"context"
	"net/url"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/oauth1"
	"github.com/dropDatabas3/socialconnect/internal/providers"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

const ProviderName = "twitter"

var defaults = providers.Defaults{
	RequestTokenURL: "https://api.twitter.com/oauth/request_token",
	AuthorizeURL:    "https://api.twitter.com/oauth/authorize",
	AuthenticateURL: "https://api.twitter.com/oauth/authenticate",
	AccessTokenURL:  "https://api.twitter.com/oauth/access_token",
	APIBaseURL:      "https://api.twitter.com/1.1",
	Version:         oauth1.Core10a,
}

func init() {
	providers.RegisterBuilder(ProviderName, func(cfg providers.Config, _ *social.StateSigner) (providers.Built, error) {
		return New(cfg)
	})
}

// New construye el provider.
func New(cfg providers.Config) (providers.Built, error) {
	return providers.BuildOAuth1[*API](cfg, defaults, func(c *providers.APIClient) *API {
		return &API{client: c}
	}, Adapter{})
}

// Account es la respuesta de account/verify_credentials.
type Account struct {
	ID         string
	ScreenName string
	Name       string
	ImageURL   string
}

// API es el cliente firmado de la API de Twitter.
type API struct {
	client *providers.APIClient
}

// VerifyCredentials retorna la cuenta del token.
func (a *API) VerifyCredentials(ctx context.Context) (Account, error) {
	q := url.Values{"skip_status": {"true"}}
	res, err := a.client.GetJSON(ctx, "verify_credentials", "/account/verify_credentials.json", q)
	if err != nil {
		return Account{}, err
	}
	return Account{
		ID:         res.Get("id_str").String(),
		ScreenName: res.Get("screen_name").String(),
		Name:       res.Get("name").String(),
		ImageURL:   res.Get("profile_image_url_https").String(),
	}, nil
}

// Adapter implementa connect.APIAdapter para *API.
type Adapter struct{}

func (Adapter) Test(ctx context.Context, api *API) error {
	_, err := api.VerifyCredentials(ctx)
	return err
}

func (Adapter) SetConnectionValues(ctx context.Context, api *API, v *connect.ConnectionValues) error {
	acc, err := api.VerifyCredentials(ctx)
	if err != nil {
		return err
	}
	v.ProviderUserID = acc.ID
	v.DisplayName = "@" + acc.ScreenName
	v.ProfileURL = "https://twitter.com/" + acc.ScreenName
	v.ImageURL = acc.ImageURL
	return nil
}

func (Adapter) FetchUserProfile(ctx context.Context, api *API) (connect.UserProfile, error) {
	acc, err := api.VerifyCredentials(ctx)
	if err != nil {
		return connect.UserProfile{}, err
	}
	return connect.UserProfile{ID: acc.ID, Name: acc.Name, Username: acc.ScreenName}, nil
}
