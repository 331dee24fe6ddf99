// Package logger provides a process-wide zap logger with context scoping.
//
// Init is called once from main. Services obtain a logger with From(ctx),
// which returns the request-scoped logger injected by the HTTP logging
// middleware, or the singleton when there is none:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.login"))
//	log.Info("login successful", logger.AccountID(acc.ID))
package logger
