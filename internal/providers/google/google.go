// Package google implementa el provider OAuth2 de Google (userinfo OIDC).
package google

import (
	"context"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/providers"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

const ProviderName = "google"

var defaults = providers.Defaults{
	AuthorizeURL:   "https://accounts.google.com/o/oauth2/v2/auth",
	AccessTokenURL: "https://oauth2.googleapis.com/token",
	APIBaseURL:     "https://openidconnect.googleapis.com/v1",
	Scope:          "openid email profile",
}

func init() {
	providers.RegisterBuilder(ProviderName, New)
}

// New construye el provider.
func New(cfg providers.Config, states *social.StateSigner) (providers.Built, error) {
	return providers.BuildOAuth2[*API](cfg, states, defaults, func(c *providers.APIClient) *API {
		return &API{client: c}
	}, Adapter{})
}

// UserInfo es la respuesta del endpoint userinfo.
type UserInfo struct {
	Subject       string
	Name          string
	GivenName     string
	FamilyName    string
	Email         string
	EmailVerified bool
	Picture       string
	Profile       string
}

// API es el cliente de userinfo.
type API struct {
	client *providers.APIClient
}

// UserInfo retorna los claims del usuario.
func (a *API) UserInfo(ctx context.Context) (UserInfo, error) {
	res, err := a.client.GetJSON(ctx, "userinfo", "/userinfo", nil)
	if err != nil {
		return UserInfo{}, err
	}
	return UserInfo{
		Subject:       res.Get("sub").String(),
		Name:          res.Get("name").String(),
		GivenName:     res.Get("given_name").String(),
		FamilyName:    res.Get("family_name").String(),
		Email:         res.Get("email").String(),
		EmailVerified: res.Get("email_verified").Bool(),
		Picture:       res.Get("picture").String(),
		Profile:       res.Get("profile").String(),
	}, nil
}

// Adapter implementa connect.APIAdapter para *API.
type Adapter struct{}

func (Adapter) Test(ctx context.Context, api *API) error {
	_, err := api.UserInfo(ctx)
	return err
}

func (Adapter) SetConnectionValues(ctx context.Context, api *API, v *connect.ConnectionValues) error {
	u, err := api.UserInfo(ctx)
	if err != nil {
		return err
	}
	v.ProviderUserID = u.Subject
	v.DisplayName = u.Name
	v.ProfileURL = u.Profile
	v.ImageURL = u.Picture
	return nil
}

func (Adapter) FetchUserProfile(ctx context.Context, api *API) (connect.UserProfile, error) {
	u, err := api.UserInfo(ctx)
	if err != nil {
		return connect.UserProfile{}, err
	}
	p := connect.UserProfile{
		ID:        u.Subject,
		Name:      u.Name,
		FirstName: u.GivenName,
		LastName:  u.FamilyName,
	}
	// sólo emails verificados
	if u.EmailVerified {
		p.Email = u.Email
	}
	return p, nil
}
