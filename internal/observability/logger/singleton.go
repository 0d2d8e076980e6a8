package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu       sync.RWMutex
	instance *zap.Logger
)

// Init inicializa el logger global. Llamadas posteriores reemplazan la instancia,
// lo que permite a los tests instalar un logger observado.
func Init(cfg Config) {
	Set(build(cfg))
}

// Set instala un logger ya construido (por ejemplo zaptest o zap.NewNop).
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	instance = l
	mu.Unlock()
}

// L retorna el logger global. Sin Init previo devuelve un logger dev/info.
func L() *zap.Logger {
	mu.RLock()
	l := instance
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(Config{Env: "dev", Level: "info"})
	return L()
}

// Named retorna un logger con nombre de componente.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// With retorna un logger con campos persistentes.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Sync flushea buffers pendientes. Usar con defer en main.
func Sync() error {
	mu.RLock()
	l := instance
	mu.RUnlock()
	if l == nil {
		return nil
	}
	return l.Sync()
}
