// Package connect contiene los DTOs de /connect y /signup.
package connect

import (
	"github.com/dropDatabas3/socialconnect/internal/connect"
)

// Connection es la vista pública de una conexión. Nunca incluye credenciales.
type Connection struct {
	ProviderID     string `json:"provider_id"`
	ProviderUserID string `json:"provider_user_id"`
	DisplayName    string `json:"display_name,omitempty"`
	ProfileURL     string `json:"profile_url,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	Expired        bool   `json:"expired"`
}

// FromConnection arma el DTO.
func FromConnection(c connect.Connection) Connection {
	key := c.Key()
	return Connection{
		ProviderID:     key.ProviderID,
		ProviderUserID: key.ProviderUserID,
		DisplayName:    c.DisplayName(),
		ProfileURL:     c.ProfileURL(),
		ImageURL:       c.ImageURL(),
		Expired:        c.HasExpired(),
	}
}

// FromConnections nunca retorna nil, para serializar [] y no null.
func FromConnections(cs []connect.Connection) []Connection {
	out := make([]Connection, 0, len(cs))
	for _, c := range cs {
		out = append(out, FromConnection(c))
	}
	return out
}

// StatusResponse es la respuesta de GET /connect: una entrada por provider
// registrado, vacía si no hay conexiones.
type StatusResponse struct {
	Connections map[string][]Connection `json:"connections"`
}

// ProviderResponse es la respuesta de GET /connect/{provider}.
type ProviderResponse struct {
	ProviderID  string       `json:"provider_id"`
	Connected   bool         `json:"connected"`
	Connections []Connection `json:"connections"`
	// Reconnect indica que se eliminó una credencial rechazada.
	Reconnect bool `json:"reconnect,omitempty"`
}

// ProfileResponse es el perfil que reporta el provider para la conexión primaria.
type ProfileResponse struct {
	ProviderID string              `json:"provider_id"`
	Profile    connect.UserProfile `json:"profile"`
}

// PendingSignUpResponse describe la conexión pendiente de un sign-in sin
// usuario local.
type PendingSignUpResponse struct {
	Connection Connection `json:"connection"`
}
