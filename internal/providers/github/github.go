// Package github implementa el provider OAuth2 de GitHub.
package github

import (
	"context"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/providers"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

const ProviderName = "github"

var defaults = providers.Defaults{
	AuthorizeURL:   "https://github.com/login/oauth/authorize",
	AccessTokenURL: "https://github.com/login/oauth/access_token",
	APIBaseURL:     "https://api.github.com",
	Scope:          "read:user user:email",
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

// User es el perfil de /user.
type User struct {
	ID        string
	Login     string
	Name      string
	Email     string
	HTMLURL   string
	AvatarURL string
}

// API es el cliente de la API REST de GitHub.
type API struct {
	client *providers.APIClient
}

// User retorna el usuario autenticado.
func (a *API) User(ctx context.Context) (User, error) {
	res, err := a.client.GetJSON(ctx, "user", "/user", nil)
	if err != nil {
		return User{}, err
	}
	return User{
		ID:        res.Get("id").String(),
		Login:     res.Get("login").String(),
		Name:      res.Get("name").String(),
		Email:     res.Get("email").String(),
		HTMLURL:   res.Get("html_url").String(),
		AvatarURL: res.Get("avatar_url").String(),
	}, nil
}

// Adapter implementa connect.APIAdapter para *API.
type Adapter struct{}

func (Adapter) Test(ctx context.Context, api *API) error {
	_, err := api.User(ctx)
	return err
}

func (Adapter) SetConnectionValues(ctx context.Context, api *API, v *connect.ConnectionValues) error {
	u, err := api.User(ctx)
	if err != nil {
		return err
	}
	v.ProviderUserID = u.ID
	v.DisplayName = u.Login
	v.ProfileURL = u.HTMLURL
	v.ImageURL = u.AvatarURL
	return nil
}

func (Adapter) FetchUserProfile(ctx context.Context, api *API) (connect.UserProfile, error) {
	u, err := api.User(ctx)
	if err != nil {
		return connect.UserProfile{}, err
	}
	return connect.UserProfile{ID: u.ID, Name: u.Name, Email: u.Email, Username: u.Login}, nil
}
