// Package generic implementa providers OAuth1 y OAuth2 configurables: los
// endpoints y el mapeo del JSON de perfil vienen de la config.
package generic

import (
	"context"
	"errors"

	"github.com/tidwall/gjson"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/providers"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

const (
	OAuth2Type = "oauth2"
	OAuth1Type = "oauth1"
)

func init() {
	providers.RegisterBuilder(OAuth2Type, NewOAuth2)
	providers.RegisterBuilder(OAuth1Type, func(cfg providers.Config, _ *social.StateSigner) (providers.Built, error) {
		return NewOAuth1(cfg)
	})
}

func validate(cfg providers.Config) error {
	if cfg.ID == "" {
		return errors.New("generic provider requires an id")
	}
	if cfg.Profile.URL == "" || cfg.Profile.ID == "" {
		return errors.New("generic provider requires profile url and id path")
	}
	return nil
}

// NewOAuth2 construye un provider OAuth2 genérico.
func NewOAuth2(cfg providers.Config, states *social.StateSigner) (providers.Built, error) {
	if err := validate(cfg); err != nil {
		return providers.Built{}, err
	}
	built, err := providers.BuildOAuth2[*API](cfg, states, providers.Defaults{}, newAPI(cfg.Profile), Adapter{})
	built.Shared = true
	return built, err
}

// NewOAuth1 construye un provider OAuth1 genérico.
func NewOAuth1(cfg providers.Config) (providers.Built, error) {
	if err := validate(cfg); err != nil {
		return providers.Built{}, err
	}
	built, err := providers.BuildOAuth1[*API](cfg, providers.Defaults{}, newAPI(cfg.Profile), Adapter{})
	built.Shared = true
	return built, err
}

func newAPI(m providers.ProfileMapping) func(*providers.APIClient) *API {
	return func(c *providers.APIClient) *API { return &API{client: c, mapping: m} }
}

// API lee el perfil configurado.
type API struct {
	client  *providers.APIClient
	mapping providers.ProfileMapping
}

// Profile es el perfil mapeado.
type Profile struct {
	ID        string
	Name      string
	Username  string
	FirstName string
	LastName  string
	Email     string
	Link      string
	Image     string
}

// ErrMissingID: la respuesta no trae el id en el path configurado.
var ErrMissingID = errors.New("generic: profile response without account id")

// Profile obtiene y mapea el perfil.
func (a *API) Profile(ctx context.Context) (Profile, error) {
	res, err := a.client.GetJSON(ctx, "profile", a.mapping.URL, nil)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{
		ID:        get(res, a.mapping.ID),
		Name:      get(res, a.mapping.Name),
		Username:  get(res, a.mapping.Username),
		FirstName: get(res, a.mapping.FirstName),
		LastName:  get(res, a.mapping.LastName),
		Email:     get(res, a.mapping.Email),
		Link:      get(res, a.mapping.Link),
		Image:     get(res, a.mapping.Image),
	}
	if p.ID == "" {
		return Profile{}, ErrMissingID
	}
	return p, nil
}

func get(res gjson.Result, path string) string {
	if path == "" {
		return ""
	}
	return res.Get(path).String()
}

// Adapter implementa connect.APIAdapter para *API.
type Adapter struct{}

func (Adapter) Test(ctx context.Context, api *API) error {
	_, err := api.Profile(ctx)
	return err
}

func (Adapter) SetConnectionValues(ctx context.Context, api *API, v *connect.ConnectionValues) error {
	p, err := api.Profile(ctx)
	if err != nil {
		return err
	}
	v.ProviderUserID = p.ID
	v.DisplayName = p.Name
	if v.DisplayName == "" {
		v.DisplayName = p.Username
	}
	v.ProfileURL = p.Link
	v.ImageURL = p.Image
	return nil
}

func (Adapter) FetchUserProfile(ctx context.Context, api *API) (connect.UserProfile, error) {
	p, err := api.Profile(ctx)
	if err != nil {
		return connect.UserProfile{}, err
	}
	return connect.UserProfile{
		ID:        p.ID,
		Name:      p.Name,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Username:  p.Username,
	}, nil
}
