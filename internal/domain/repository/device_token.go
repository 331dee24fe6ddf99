package repository

import (
	"context"
	"time"
)

// DeviceToken is a push-notification token reported by a mobile client at
// social login.
type DeviceToken struct {
	Token      string
	DeviceType string
	AccountID  int64
	UpdatedAt  time.Time
}

// DeviceTokenRepository keys device tokens by the token string; a token
// reported again moves to the latest account.
type DeviceTokenRepository interface {
	Upsert(ctx context.Context, dt DeviceToken) error
	ListByAccount(ctx context.Context, accountID int64) ([]DeviceToken, error)
}
