// Package social implementa el sign-in y el connect con providers OAuth.
//
// Flujo de un callback:
//
//	provider ──▶ AuthenticationService.Complete ──▶ connect.Connection
//	                                                  │
//	        sesión sin usuario ◀──────────────────────┴──────▶ sesión autenticada
//	                │                                               │
//	  AuthenticationProvider.Authenticate              Connector.AddConnection
//	   1 usuario → login                                 (CardinalityPolicy)
//	   0 usuarios → signup (si hay URL) o error
//	   N usuarios → MultipleUsersError
//
// El estado entre el redirect y el callback (state OAuth2, request token
// OAuth1, conexión pendiente de signup) vive en la sesión.
package social
