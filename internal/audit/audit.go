// Package audit records login events. Recording is best effort: a failed
// write is logged and counted but never fails the caller.
package audit

import (
	"context"
	"errors"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/store"
)

// Recorder appends login events.
type Recorder struct {
	// OnFailure, if set, is called for every dropped event.
	OnFailure func()
}

// NewRecorder returns a Recorder that counts drops in the
// audit_write_failures_total metric.
func NewRecorder() *Recorder {
	return &Recorder{OnFailure: metrics.AuditWriteFailures.Inc}
}

// Record appends ev through conn. When conn is a transaction the write runs
// in a nested scope, so a failed append leaves the enclosing transaction
// usable. It returns the stored event, or nil if the write was dropped.
func (r *Recorder) Record(ctx context.Context, conn store.Conn, ev repository.LoginEvent) *repository.LoginEvent {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("audit"),
		logger.Op("Record"),
		logger.AccountID(ev.AccountID),
		logger.String("action", string(ev.Action)),
		logger.Channel(string(ev.Channel)),
	)

	var stored *repository.LoginEvent
	err := conn.WithTx(ctx, func(tx store.Conn) error {
		var err error
		stored, err = tx.LoginEvents().Append(ctx, ev)
		return err
	})
	if err != nil {
		log.Warn("login event dropped", logger.Provider(ev.Provider), logger.ClientID(ev.ClientID), logger.Err(err))
		if r.OnFailure != nil {
			r.OnFailure()
		}
		return nil
	}
	return stored
}

// SessionChannel returns the channel of the account's latest Login or
// Signup, or ChannelUnknown when there is none or it cannot be read.
func (r *Recorder) SessionChannel(ctx context.Context, conn store.Conn, accountID int64) repository.LoginChannel {
	ev, err := conn.LoginEvents().LatestSession(ctx, accountID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.From(ctx).Warn("latest session lookup failed",
				logger.Component("audit"), logger.AccountID(accountID), logger.Err(err))
		}
		return repository.ChannelUnknown
	}
	return ev.Channel
}
