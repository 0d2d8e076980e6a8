package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ToContext guarda un logger scoped en el contexto.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From extrae el logger del contexto; si no hay, retorna el global.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return L()
}

// FromWithFields es un atajo para From(ctx).With(fields...).
func FromWithFields(ctx context.Context, fields ...zap.Field) *zap.Logger {
	return From(ctx).With(fields...)
}

// S retorna el SugaredLogger global.
func S() *zap.SugaredLogger {
	return L().Sugar()
}

// SFrom retorna el SugaredLogger del contexto.
func SFrom(ctx context.Context) *zap.SugaredLogger {
	return From(ctx).Sugar()
}
