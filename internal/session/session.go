// Package session implementa sesiones HTTP server-side sobre cache.Client.
//
// La cookie sólo lleva un id opaco (uuid); los valores viven en el cache
// bajo "sess:" + SHA256(id). Lo usan el flujo social para guardar el
// request token OAuth1, el state OAuth2, el usuario autenticado y la
// conexión pendiente de signup.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/socialconnect/internal/cache"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// UserIDKey guarda el id del usuario local autenticado.
const UserIDKey = "auth.user_id"

const keyPrefix = "sess:"

// ErrNoSession se retorna cuando el contexto no tiene sesión cargada.
var ErrNoSession = errors.New("session: no session in context")

// Session es el estado de un navegador. No es segura para uso concurrente;
// cada request trabaja sobre su propia copia.
type Session struct {
	id     string
	values map[string]json.RawMessage
	dirty  bool
	isNew  bool
}

// ID retorna el id opaco de la sesión.
func (s *Session) ID() string { return s.id }

// IsNew indica que la sesión no existía en el cache.
func (s *Session) IsNew() bool { return s.isNew }

// Get decodifica el valor de key en dst. Retorna false si no existe.
func (s *Session) Get(key string, dst any) (bool, error) {
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("session: decode %q: %w", key, err)
	}
	return true, nil
}

// GetString es Get para valores string; "" si no existe.
func (s *Session) GetString(key string) string {
	var v string
	if ok, err := s.Get(key, &v); !ok || err != nil {
		return ""
	}
	return v
}

// Set guarda v (serializable a JSON) bajo key.
func (s *Session) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("session: encode %q: %w", key, err)
	}
	s.values[key] = raw
	s.dirty = true
	return nil
}

// Delete elimina key.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// Take es Get + Delete: valores de un solo uso como state o request tokens.
func (s *Session) Take(key string, dst any) (bool, error) {
	ok, err := s.Get(key, dst)
	if ok {
		s.Delete(key)
	}
	return ok, err
}

// UserID retorna el usuario autenticado o "".
func (s *Session) UserID() string { return s.GetString(UserIDKey) }

// CookieConfig configura la cookie de sesión.
type CookieConfig struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite string // "Lax" (default) | "Strict" | "None"
}

// Deps contiene las dependencias del Store.
type Deps struct {
	Cache  cache.Client
	TTL    time.Duration // default 30m
	Cookie CookieConfig
}

// Store carga y persiste sesiones.
type Store struct {
	cache  cache.Client
	ttl    time.Duration
	cookie CookieConfig
}

// NewStore crea un Store.
func NewStore(d Deps) *Store {
	if d.TTL <= 0 {
		d.TTL = 30 * time.Minute
	}
	if d.Cookie.Name == "" {
		d.Cookie.Name = "sc_session"
	}
	if d.Cookie.Path == "" {
		d.Cookie.Path = "/"
	}
	return &Store{cache: d.Cache, ttl: d.TTL, cookie: d.Cookie}
}

func cacheKey(id string) string {
	sum := sha256.Sum256([]byte(id))
	return keyPrefix + base64.RawURLEncoding.EncodeToString(sum[:])
}

func newSession() *Session {
	return &Session{id: uuid.NewString(), values: map[string]json.RawMessage{}, isNew: true}
}

// Load lee la sesión del request. Una cookie ausente, inválida o vencida
// produce una sesión nueva vacía.
func (s *Store) Load(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(s.cookie.Name)
	if err != nil || c.Value == "" {
		return newSession(), nil
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return newSession(), nil
	}
	raw, err := s.cache.Get(ctx, cacheKey(c.Value))
	if err != nil {
		if cache.IsNotFound(err) {
			return newSession(), nil
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}
	values := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		logger.From(ctx).Warn("discarding corrupt session",
			logger.Component("session"), logger.Err(err))
		return newSession(), nil
	}
	return &Session{id: c.Value, values: values}, nil
}

// Save persiste la sesión si cambió y emite la cookie. Debe llamarse
// antes de escribir el status de la respuesta.
func (s *Store) Save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if !sess.dirty {
		return nil
	}
	raw, err := json.Marshal(sess.values)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.cache.Set(ctx, cacheKey(sess.id), string(raw), s.ttl); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	sess.dirty = false
	sess.isNew = false
	http.SetCookie(w, s.buildCookie(sess.id, int(s.ttl.Seconds())))
	return nil
}

// Touch extiende el TTL de una sesión autenticada sin cambios, así vence
// por inactividad y no desde la última escritura. Sesiones anónimas o
// nuevas se ignoran.
func (s *Store) Touch(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess.isNew || sess.dirty || sess.UserID() == "" {
		return nil
	}
	raw, err := json.Marshal(sess.values)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.cache.Set(ctx, cacheKey(sess.id), string(raw), s.ttl); err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}
	http.SetCookie(w, s.buildCookie(sess.id, int(s.ttl.Seconds())))
	return nil
}

// Renew cambia el id de la sesión conservando los valores. Se usa al
// autenticar para evitar session fixation.
func (s *Store) Renew(ctx context.Context, sess *Session) error {
	old := sess.id
	sess.id = uuid.NewString()
	sess.dirty = true
	if err := s.cache.Delete(ctx, cacheKey(old)); err != nil {
		return fmt.Errorf("session: renew: %w", err)
	}
	return nil
}

// Destroy borra la sesión y expira la cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	sess.values = map[string]json.RawMessage{}
	sess.dirty = false
	http.SetCookie(w, s.buildCookie("", -1))
	if err := s.cache.Delete(ctx, cacheKey(sess.id)); err != nil {
		return fmt.Errorf("session: destroy: %w", err)
	}
	return nil
}

func (s *Store) buildCookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(s.cookie.SameSite) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}
	c := &http.Cookie{
		Name:     s.cookie.Name,
		Value:    value,
		Path:     s.cookie.Path,
		Domain:   s.cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: sameSite,
	}
	if maxAge < 0 {
		c.Expires = time.Unix(0, 0)
	}
	return c
}

type ctxKey struct{}

// Middleware carga la sesión y la deja en el contexto del request.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.Load(r.Context(), r)
		if err != nil {
			logger.From(r.Context()).Error("session load failed",
				logger.Component("session"), logger.Err(err))
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := s.Touch(r.Context(), w, sess); err != nil {
			logger.From(r.Context()).Warn("session touch failed",
				logger.Component("session"), logger.Err(err))
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
	})
}

// NewContext agrega sess al contexto.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext retorna la sesión cargada por Middleware.
func FromContext(ctx context.Context) (*Session, error) {
	sess, ok := ctx.Value(ctxKey{}).(*Session)
	if !ok || sess == nil {
		return nil, ErrNoSession
	}
	return sess, nil
}
