package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/socialconnect/internal/providers"
	"github.com/dropDatabas3/socialconnect/internal/security/secretbox"
)

// EncryptedPrefix marca secretos cifrados con secretbox (ver `socialconnect encrypt`).
const EncryptedPrefix = "secretbox:"

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env" env:"ENV"`
		LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	} `yaml:"app" envPrefix:"APP_"`

	Server struct {
		Addr string `yaml:"addr" env:"ADDR"`
		// BaseURL es la URL pública; arma los redirect_uri de los callbacks.
		BaseURL         string        `yaml:"base_url" env:"BASE_URL"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
		// Orígenes admitidos por la API JSON de /connect.
		CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	} `yaml:"server" envPrefix:"SERVER_"`

	Storage struct {
		// postgres | mysql | bolt | memory
		Driver       string `yaml:"driver" env:"DRIVER"`
		DSN          string `yaml:"dsn" env:"DSN"`
		Path         string `yaml:"path" env:"PATH"`
		MaxOpenConns int    `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
		MaxIdleConns int    `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
		// Migrate aplica las migraciones al arrancar.
		Migrate bool `yaml:"migrate" env:"MIGRATE"`
		// RefreshExpired renueva conexiones OAuth2 vencidas al leerlas.
		RefreshExpired bool `yaml:"refresh_expired" env:"REFRESH_EXPIRED"`
	} `yaml:"storage" envPrefix:"STORAGE_"`

	Cache struct {
		Kind  string `yaml:"kind" env:"KIND"`
		Redis struct {
			Addr     string `yaml:"addr" env:"ADDR"`
			Password string `yaml:"password" env:"PASSWORD"`
			DB       int    `yaml:"db" env:"DB"`
			Prefix   string `yaml:"prefix" env:"PREFIX"`
		} `yaml:"redis" envPrefix:"REDIS_"`
	} `yaml:"cache" envPrefix:"CACHE_"`

	Session struct {
		CookieName string        `yaml:"cookie_name" env:"COOKIE_NAME"`
		Domain     string        `yaml:"domain" env:"DOMAIN"`
		SameSite   string        `yaml:"samesite" env:"SAMESITE"`
		Secure     bool          `yaml:"secure" env:"SECURE"`
		TTL        time.Duration `yaml:"ttl" env:"TTL"`
	} `yaml:"session" envPrefix:"SESSION_"`

	Security struct {
		// base64(32 bytes); de ella se derivan la clave de credenciales y la del state.
		MasterKey string        `yaml:"secretbox_master_key" env:"SECRETBOX_MASTER_KEY"`
		StateTTL  time.Duration `yaml:"state_ttl" env:"STATE_TTL"`
	} `yaml:"security"`

	Social struct {
		SignInPath     string `yaml:"signin_path" env:"SIGNIN_PATH"`
		ConnectPath    string `yaml:"connect_path" env:"CONNECT_PATH"`
		SignupURL      string `yaml:"signup_url" env:"SIGNUP_URL"`
		PostLoginURL   string `yaml:"post_login_url" env:"POST_LOGIN_URL"`
		PostConnectURL string `yaml:"post_connect_url" env:"POST_CONNECT_URL"`
		FailureURL     string `yaml:"failure_url" env:"FAILURE_URL"`
		// ImplicitSignUp crea un usuario local (uuid) para cuentas sin usuario.
		ImplicitSignUp bool `yaml:"implicit_signup" env:"IMPLICIT_SIGNUP"`
	} `yaml:"social" envPrefix:"SOCIAL_"`

	Rate struct {
		Enabled bool `yaml:"enabled" env:"ENABLED"`
		SignIn  struct {
			Limit  int           `yaml:"limit" env:"LIMIT"`
			Window time.Duration `yaml:"window" env:"WINDOW"`
		} `yaml:"signin" envPrefix:"SIGNIN_"`
	} `yaml:"rate" envPrefix:"RATE_"`

	// ───────── Social Providers ─────────
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig es la entrada YAML de un provider. client_id y
// client_secret se pueden pisar con SOCIAL_<ID>_CLIENT_ID / _CLIENT_SECRET.
type ProviderConfig struct {
	ID                  string            `yaml:"id"`
	Type                string            `yaml:"type"`
	ClientID            string            `yaml:"client_id"`
	ClientSecret        string            `yaml:"client_secret"`
	Scope               string            `yaml:"scope"`
	HeaderStyle         string            `yaml:"header_style"`
	OAuthVersion        string            `yaml:"oauth_version"`
	MultiUserID         bool              `yaml:"multi_user_id"`
	MultiProviderUserID bool              `yaml:"multi_provider_user_id"`
	SignInDisabled      bool              `yaml:"signin_disabled"`
	AuthorizeURL        string            `yaml:"authorize_url"`
	AuthenticateURL     string            `yaml:"authenticate_url"`
	AccessTokenURL      string            `yaml:"access_token_url"`
	RequestTokenURL     string            `yaml:"request_token_url"`
	APIBaseURL          string            `yaml:"api_base_url"`
	Profile             map[string]string `yaml:"profile"`
}

// ProviderID retorna id o, si falta, type.
func (p ProviderConfig) ProviderID() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Type
}

// Load lee path (opcional), aplica variables de entorno, defaults y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}
	c.applyProviderEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyProviderEnv() {
	for i := range c.Providers {
		p := &c.Providers[i]
		prefix := "SOCIAL_" + envName(p.ProviderID()) + "_"
		if v, ok := getEnvStr(prefix + "CLIENT_ID"); ok {
			p.ClientID = v
		}
		if v, ok := getEnvStr(prefix + "CLIENT_SECRET"); ok {
			p.ClientSecret = v
		}
	}
}

func envName(id string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(id))
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func (c *Config) applyDefaults() {
	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "sc:"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "sc_session"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "Lax"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 30 * time.Minute
	}
	if c.Security.StateTTL == 0 {
		c.Security.StateTTL = 10 * time.Minute
	}
	if c.Social.SignInPath == "" {
		c.Social.SignInPath = "/signin"
	}
	if c.Social.ConnectPath == "" {
		c.Social.ConnectPath = "/connect"
	}
	if c.Social.PostLoginURL == "" {
		c.Social.PostLoginURL = "/"
	}
	if c.Social.PostConnectURL == "" {
		c.Social.PostConnectURL = c.Social.ConnectPath
	}
	if c.Social.FailureURL == "" {
		c.Social.FailureURL = c.Social.SignInPath
	}
	if c.Rate.SignIn.Limit == 0 {
		c.Rate.SignIn.Limit = 10
	}
	if c.Rate.SignIn.Window == 0 {
		c.Rate.SignIn.Window = time.Minute
	}
}

var (
	validDrivers  = map[string]bool{"postgres": true, "mysql": true, "bolt": true, "memory": true}
	validCaches   = map[string]bool{"memory": true, "redis": true}
	validSameSite = map[string]bool{"lax": true, "strict": true, "none": true}
)

// Validate rechaza drivers desconocidos, claves faltantes y providers mal definidos.
func (c *Config) Validate() error {
	var errs []error
	if !validDrivers[c.Storage.Driver] {
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	switch c.Storage.Driver {
	case "postgres", "mysql":
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn: required for %s", c.Storage.Driver))
		}
	case "bolt":
		if c.Storage.Path == "" && c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.path: required for bolt"))
		}
	}
	if !validCaches[c.Cache.Kind] {
		errs = append(errs, fmt.Errorf("cache.kind: unknown kind %q", c.Cache.Kind))
	}
	if c.Cache.Kind == "redis" && c.Cache.Redis.Addr == "" {
		errs = append(errs, errors.New("cache.redis.addr: required for redis"))
	}
	if !validSameSite[strings.ToLower(c.Session.SameSite)] {
		errs = append(errs, fmt.Errorf("session.samesite: invalid value %q", c.Session.SameSite))
	}
	if _, err := secretbox.ParseKey(c.Security.MasterKey); err != nil {
		errs = append(errs, fmt.Errorf("security.secretbox_master_key: %w", err))
	}
	if c.Server.BaseURL != "" && !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("server.base_url: must be absolute, got %q", c.Server.BaseURL))
	}

	seen := map[string]bool{}
	for i, p := range c.Providers {
		id := p.ProviderID()
		switch {
		case p.Type == "":
			errs = append(errs, fmt.Errorf("providers[%d].type: required", i))
		case seen[id]:
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate provider id %q", i, id))
		case p.ClientID == "":
			errs = append(errs, fmt.Errorf("providers[%d] (%s).client_id: required", i, id))
		}
		seen[id] = true
	}
	return errors.Join(errs...)
}

// Subclaves derivadas de la clave maestra.
const (
	KeyCredentials = "credentials"
	KeyState       = "state"
	KeyConfig      = "config"
)

// DerivedKey deriva la subclave info de la clave maestra.
func (c *Config) DerivedKey(info string) ([]byte, error) {
	master, err := secretbox.ParseKey(c.Security.MasterKey)
	if err != nil {
		return nil, err
	}
	return secretbox.DeriveKey(master, info)
}

// Codec retorna un secretbox sobre la subclave info.
func (c *Config) Codec(info string) (*secretbox.Box, error) {
	key, err := c.DerivedKey(info)
	if err != nil {
		return nil, err
	}
	return secretbox.New(key)
}

// ProviderConfigs traduce la config de providers. Los secretos con
// EncryptedPrefix se descifran con codec.
func (c *Config) ProviderConfigs(codec secretbox.Codec) ([]providers.Config, error) {
	out := make([]providers.Config, 0, len(c.Providers))
	for _, p := range c.Providers {
		secret := p.ClientSecret
		if strings.HasPrefix(secret, EncryptedPrefix) {
			plain, err := codec.Decrypt(strings.TrimPrefix(secret, EncryptedPrefix))
			if err != nil {
				return nil, fmt.Errorf("provider %s: decrypt client secret: %w", p.ProviderID(), err)
			}
			secret = plain
		}
		out = append(out, providers.Config{
			ID:                  p.ID,
			Type:                p.Type,
			ClientID:            p.ClientID,
			ClientSecret:        secret,
			Scope:               p.Scope,
			HeaderStyle:         p.HeaderStyle,
			OAuthVersion:        p.OAuthVersion,
			MultiUserID:         p.MultiUserID,
			MultiProviderUserID: p.MultiProviderUserID,
			SignInDisabled:      p.SignInDisabled,
			AuthorizeURL:        p.AuthorizeURL,
			AuthenticateURL:     p.AuthenticateURL,
			AccessTokenURL:      p.AccessTokenURL,
			RequestTokenURL:     p.RequestTokenURL,
			APIBaseURL:          p.APIBaseURL,
			Profile: providers.ProfileMapping{
				URL:       p.Profile["url"],
				ID:        p.Profile["id"],
				Name:      p.Profile["name"],
				Username:  p.Profile["username"],
				FirstName: p.Profile["first_name"],
				LastName:  p.Profile["last_name"],
				Email:     p.Profile["email"],
				Link:      p.Profile["link"],
				Image:     p.Profile["image"],
			},
		})
	}
	return out, nil
}
