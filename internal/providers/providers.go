// Package providers arma los connection factories y authentication
// services de cada provider configurado.
//
// Cada provider vive en su sub-paquete y se registra por nombre en init():
//
//	facebook, github, google  OAuth2
//	twitter                   OAuth1.0a
//	oauth2, oauth1            genéricos, endpoints y perfil por config
//
// Setup recorre la config, construye cada provider y lo registra en el
// connect.Registry y en el social.ServiceRegistry.
package providers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

// ObserveFunc recibe la duración de cada llamada a la API del provider.
type ObserveFunc func(providerID, call string, d time.Duration)

// ExchangeFunc recibe el resultado de cada intercambio contra el token endpoint.
type ExchangeFunc func(providerID, grant string, err error)

// Config configura una instancia de provider.
type Config struct {
	// ID es el providerId; vacío usa Type.
	ID string
	// Type es el nombre del builder (facebook, github, google, twitter, oauth2, oauth1).
	Type string

	ClientID     string
	ClientSecret string
	Scope        string
	// HeaderStyle: bearer (default), oauth2, oauth, token.
	HeaderStyle string
	// OAuthVersion para oauth1 genérico: 1.0a (default) o 1.0.
	OAuthVersion string

	MultiUserID         bool
	MultiProviderUserID bool
	SignInDisabled      bool

	// Endpoints; vacíos usan los del provider.
	AuthorizeURL    string
	AuthenticateURL string
	AccessTokenURL  string
	RequestTokenURL string
	APIBaseURL      string

	// Profile mapea el JSON del perfil en los providers genéricos.
	Profile ProfileMapping

	HTTPClient *http.Client
	Observe    ObserveFunc
	Exchange   ExchangeFunc
}

// ProfileMapping son paths gjson sobre la respuesta de Profile.URL.
type ProfileMapping struct {
	URL       string
	ID        string
	Name      string
	Username  string
	FirstName string
	LastName  string
	Email     string
	Link      string
	Image     string
}

// ProviderID retorna el id efectivo.
func (c Config) ProviderID() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Type
}

// Policy traduce los flags de cardinalidad.
func (c Config) Policy() social.CardinalityPolicy {
	return social.CardinalityPolicy{
		MultiUserID:          c.MultiUserID,
		MultiProviderUserID:  c.MultiProviderUserID,
		AuthenticatePossible: !c.SignInDisabled,
	}
}

// Or retorna v, o def si v está vacío.
func Or(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Built es el resultado de construir un provider.
type Built struct {
	Factory connect.ConnectionFactory
	Service social.AuthenticationService
	// Shared indica que el tipo de API es compartido con otras instancias
	// (providers genéricos) y no se registra por tipo.
	Shared bool
}

// Builder construye un provider desde su config.
type Builder func(cfg Config, states *social.StateSigner) (Built, error)

var (
	mu       sync.RWMutex
	builders = make(map[string]Builder)
)

// RegisterBuilder registra un builder. Llamar en init() de cada provider.
func RegisterBuilder(name string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	builders[name] = b
}

// AvailableProviders retorna los nombres de builders registrados.
func AvailableProviders() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build construye el provider de cfg.
func Build(cfg Config, states *social.StateSigner) (Built, error) {
	mu.RLock()
	b, ok := builders[cfg.Type]
	mu.RUnlock()
	if !ok {
		return Built{}, fmt.Errorf("provider type not registered: %s", cfg.Type)
	}
	built, err := b(cfg, states)
	if err != nil {
		return Built{}, fmt.Errorf("failed to create provider %s: %w", cfg.ProviderID(), err)
	}
	return built, nil
}

// Setup construye y registra cada provider.
func Setup(cfgs []Config, states *social.StateSigner, factories *connect.Registry, services *social.ServiceRegistry) error {
	for _, cfg := range cfgs {
		built, err := Build(cfg, states)
		if err != nil {
			return err
		}
		if built.Shared {
			err = factories.RegisterShared(built.Factory)
		} else {
			err = factories.Register(built.Factory)
		}
		if err != nil {
			return err
		}
		if err := services.Register(built.Service); err != nil {
			return err
		}
	}
	return nil
}
