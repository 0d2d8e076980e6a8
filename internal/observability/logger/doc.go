// Package logger provides the process-wide zap logger and request scoping.
//
// # Design
//
//   - Singleton: una sola instancia inicializada con Init() desde main.
//   - Context scoping: los middlewares inyectan un logger con request_id y
//     los services lo recuperan con From(ctx).
//   - Environments: "dev" escribe consola con colores, "prod" escribe JSON.
//
// # Usage
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Component("connect.repository"))
//	log.Info("connection added", logger.ProviderID("facebook"), logger.LocalUserID(uid))
//
// Credenciales (access tokens, secrets, refresh tokens) nunca se loguean.
package logger
