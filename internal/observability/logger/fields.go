package logger

import (
	"time"

	"go.uber.org/zap"
)

// ─── HTTP ───

func RequestID(v string) zap.Field       { return zap.String("request_id", v) }
func Method(v string) zap.Field          { return zap.String("method", v) }
func Path(v string) zap.Field            { return zap.String("path", v) }
func Status(v int) zap.Field             { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func ClientIP(v string) zap.Field        { return zap.String("client_ip", v) }
func RedirectTo(v string) zap.Field      { return zap.String("redirect_to", v) }

// ─── Social / connect ───

// ProviderID identifica el provider ("facebook", "twitter", ...).
func ProviderID(v string) zap.Field { return zap.String("provider_id", v) }

// ProviderUserID es el id de la cuenta del lado del provider.
func ProviderUserID(v string) zap.Field { return zap.String("provider_user_id", v) }

// LocalUserID es el id del usuario local dueño de la conexión.
func LocalUserID(v string) zap.Field { return zap.String("local_user_id", v) }

// GrantType es el grant OAuth2 usado en un intercambio.
func GrantType(v string) zap.Field { return zap.String("grant_type", v) }

// Flow distingue "signin" de "connect".
func Flow(v string) zap.Field { return zap.String("flow", v) }

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int) zap.Field        { return zap.Int("count", v) }

// ─── Genéricos ───

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
