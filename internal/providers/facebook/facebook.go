// Package facebook implementa el provider OAuth2 de Facebook (Graph API).
package facebook

import (
	"context"
	"net/url"

	xoauth2 "golang.org/x/oauth2"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/providers"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

const ProviderName = "facebook"

const graphVersion = "v19.0"

var defaults = providers.Defaults{
	AuthorizeURL:   "https://www.facebook.com/" + graphVersion + "/dialog/oauth",
	AccessTokenURL: "https://graph.facebook.com/" + graphVersion + "/oauth/access_token",
	APIBaseURL:     "https://graph.facebook.com/" + graphVersion,
	Scope:          "public_profile,email",
	// Facebook no acepta HTTP Basic en el token endpoint.
	AuthStyle: xoauth2.AuthStyleInParams,
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

// Me es el perfil del usuario del token.
type Me struct {
	ID        string
	Name      string
	FirstName string
	LastName  string
	Email     string
	Link      string
}

// API es el cliente de la Graph API.
type API struct {
	client *providers.APIClient
}

// Me retorna el perfil del usuario.
func (a *API) Me(ctx context.Context) (Me, error) {
	q := url.Values{"fields": {"id,name,first_name,last_name,email,link"}}
	res, err := a.client.GetJSON(ctx, "me", "/me", q)
	if err != nil {
		return Me{}, err
	}
	return Me{
		ID:        res.Get("id").String(),
		Name:      res.Get("name").String(),
		FirstName: res.Get("first_name").String(),
		LastName:  res.Get("last_name").String(),
		Email:     res.Get("email").String(),
		Link:      res.Get("link").String(),
	}, nil
}

// PictureURL es la URL de la foto de perfil de id.
func (a *API) PictureURL(id string) string {
	return a.client.BaseURL + "/" + url.PathEscape(id) + "/picture"
}

// Adapter implementa connect.APIAdapter para *API.
type Adapter struct{}

func (Adapter) Test(ctx context.Context, api *API) error {
	_, err := api.Me(ctx)
	return err
}

func (Adapter) SetConnectionValues(ctx context.Context, api *API, v *connect.ConnectionValues) error {
	me, err := api.Me(ctx)
	if err != nil {
		return err
	}
	v.ProviderUserID = me.ID
	v.DisplayName = me.Name
	v.ProfileURL = me.Link
	if v.ProfileURL == "" {
		v.ProfileURL = "https://www.facebook.com/app_scoped_user_id/" + me.ID
	}
	v.ImageURL = api.PictureURL(me.ID)
	return nil
}

func (Adapter) FetchUserProfile(ctx context.Context, api *API) (connect.UserProfile, error) {
	me, err := api.Me(ctx)
	if err != nil {
		return connect.UserProfile{}, err
	}
	return connect.UserProfile{
		ID:        me.ID,
		Name:      me.Name,
		FirstName: me.FirstName,
		LastName:  me.LastName,
		Email:     me.Email,
	}, nil
}
