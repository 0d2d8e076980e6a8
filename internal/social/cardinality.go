package social

// CardinalityPolicy son las reglas de vinculación de un provider.
type CardinalityPolicy struct {
	// MultiUserID permite que una cuenta del provider esté vinculada a
	// varios usuarios locales.
	MultiUserID bool
	// MultiProviderUserID permite que un usuario local vincule varias
	// cuentas del mismo provider.
	MultiProviderUserID bool
	// AuthenticatePossible habilita el sign-in; si es false el provider
	// sólo sirve para connect.
	AuthenticatePossible bool
}

// DefaultPolicy: una cuenta por usuario y un usuario por cuenta, con
// sign-in habilitado.
func DefaultPolicy() CardinalityPolicy {
	return CardinalityPolicy{AuthenticatePossible: true}
}
