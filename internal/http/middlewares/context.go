package middlewares

import (
	"context"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
)

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxAccountKey   ctxKey = "account"
	ctxTokenKey     ctxKey = "token"
)

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, id)
}

// GetRequestID returns the request id, or "".
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}

// WithAccount stores the authenticated account and the bearer token that
// proved it.
func WithAccount(ctx context.Context, acc *repository.Account, token string) context.Context {
	ctx = context.WithValue(ctx, ctxAccountKey, acc)
	return context.WithValue(ctx, ctxTokenKey, token)
}

// GetAccount returns the authenticated account, or nil.
func GetAccount(ctx context.Context) *repository.Account {
	acc, _ := ctx.Value(ctxAccountKey).(*repository.Account)
	return acc
}

// GetToken returns the bearer token of the authenticated request, or "".
func GetToken(ctx context.Context) string {
	s, _ := ctx.Value(ctxTokenKey).(string)
	return s
}
