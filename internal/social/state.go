package social

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// StateAudience es la audiencia de los state tokens.
const StateAudience = "social-state"

// StateClaims son los claims del parámetro state OAuth2.
type StateClaims struct {
	Provider string `json:"provider"`
	Flow     Flow   `json:"flow"`
	Nonce    string `json:"nonce"`
	jwtv5.RegisteredClaims
}

// Errores de state.
var (
	ErrStateInvalid  = errors.New("invalid state token")
	ErrStateExpired  = errors.New("state token expired")
	ErrStateProvider = errors.New("state provider mismatch")
	ErrStateNonce    = errors.New("state nonce mismatch")
)

// StateSigner firma y valida el state con HS256. La clave se deriva de la
// master key (ver secretbox.DeriveKey).
type StateSigner struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner crea un signer. ttl por defecto 10m.
func NewStateSigner(key []byte, issuer string, ttl time.Duration) (*StateSigner, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("social: state key must be at least 32 bytes, got %d", len(key))
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{key: key, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// SignState firma claims; completa iss, aud, iat, nbf y exp.
func (s *StateSigner) SignState(claims StateClaims) (string, error) {
	now := s.now().UTC()
	claims.RegisteredClaims = jwtv5.RegisteredClaims{
		Issuer:    s.issuer,
		Audience:  jwtv5.ClaimStrings{StateAudience},
		IssuedAt:  jwtv5.NewNumericDate(now),
		NotBefore: jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(now.Add(s.ttl)),
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.key)
}

// ParseState valida firma, issuer, audiencia y expiración (30s de gracia).
func (s *StateSigner) ParseState(token string) (*StateClaims, error) {
	claims := &StateClaims{}
	_, err := jwtv5.ParseWithClaims(token, claims,
		func(*jwtv5.Token) (any, error) { return s.key, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(s.issuer),
		jwtv5.WithAudience(StateAudience),
		jwtv5.WithLeeway(30*time.Second),
		jwtv5.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, ErrStateInvalid
	}
	return claims, nil
}
