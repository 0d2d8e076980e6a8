package social

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"sync"

	"github.com/dropDatabas3/socialconnect/internal/connect"
)

// Flow distingue el sign-in del connect.
type Flow string

const (
	FlowSignIn  Flow = "signin"
	FlowConnect Flow = "connect"
)

// SessionValues es lo que el flujo necesita de una sesión.
// *session.Session lo implementa.
type SessionValues interface {
	Get(key string, dst any) (bool, error)
	Set(key string, v any) error
	Delete(key string)
	Take(key string, dst any) (bool, error)
}

// StartRequest son los datos del primer leg.
type StartRequest struct {
	Flow        Flow
	CallbackURL string
	// Scope reemplaza el scope por defecto del provider (sólo OAuth2).
	Scope string
	// Extra se agrega a la URL de autorización.
	Extra url.Values
}

// AuthenticationService ejecuta los dos legs OAuth de un provider.
type AuthenticationService interface {
	ProviderID() string
	Policy() CardinalityPolicy

	// Start guarda en sess lo necesario para el callback y retorna la URL
	// del provider.
	Start(ctx context.Context, sess SessionValues, req StartRequest) (string, error)

	// IsCallback indica si q trae parámetros de callback del provider.
	IsCallback(q url.Values) bool

	// Complete valida el callback contra sess, intercambia la credencial y
	// construye la conexión.
	Complete(ctx context.Context, sess SessionValues, q url.Values, flow Flow, callbackURL string) (connect.Connection, error)
}

// ServiceRegistry indexa los AuthenticationService por provider.
type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[string]AuthenticationService
	order    []string
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{services: make(map[string]AuthenticationService)}
}

// Register falla si el provider ya tiene servicio.
func (r *ServiceRegistry) Register(s AuthenticationService) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := s.ProviderID()
	if _, dup := r.services[id]; dup {
		return fmt.Errorf("social: service for %q already registered", id)
	}
	r.services[id] = s
	r.order = append(r.order, id)
	return nil
}

// Get retorna el servicio de providerID o ErrUnknownService.
func (r *ServiceRegistry) Get(providerID string) (AuthenticationService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, providerID)
	}
	return s, nil
}

// ProviderIDs en orden de registro.
func (r *ServiceRegistry) ProviderIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func randomNonce() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
