package repository

import (
	"context"
	"time"
)

// LoginAction is the auth-state transition being recorded.
type LoginAction string

const (
	ActionLogin  LoginAction = "Login"
	ActionSignup LoginAction = "Signup"
	ActionLogout LoginAction = "Logout"
)

// LoginChannel is the surface the transition came through.
type LoginChannel string

const (
	ChannelWebsite      LoginChannel = "Website"
	ChannelSocial       LoginChannel = "Social"
	ChannelSocialMobile LoginChannel = "Social-Mobile"
	// ChannelUnknown is recorded on logout when the account has no prior
	// Login or Signup event.
	ChannelUnknown LoginChannel = "Unknown"
)

// LoginEvent is an append-only audit record.
type LoginEvent struct {
	ID          int64
	AccountID   int64
	Action      LoginAction
	Channel     LoginChannel
	PurchaseKey string
	ClientID    string
	Provider    string
	CreatedAt   time.Time
}

// LoginEventRepository stores audit records. There is no update or delete.
type LoginEventRepository interface {
	Append(ctx context.Context, ev LoginEvent) (*LoginEvent, error)

	// LatestSession returns the most recent Login or Signup event for the
	// account, or ErrNotFound.
	LatestSession(ctx context.Context, accountID int64) (*LoginEvent, error)

	// ListByAccount returns events newest first.
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]LoginEvent, error)
}
