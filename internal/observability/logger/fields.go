package logger

import (
	"time"

	"go.uber.org/zap"
)

// Field is a structured log field.
type Field = zap.Field

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

// Duration records request or call latency.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// ─── Domain ───

// AccountID is the numeric local account id.
func AccountID(v int64) zap.Field { return zap.Int64("account_id", v) }

// Provider is the identity provider name (apple, google, ...).
func Provider(v string) zap.Field { return zap.String("provider", v) }

// Channel is the login channel recorded in the audit trail.
func Channel(v string) zap.Field { return zap.String("channel", v) }

// ClientID is the calling application's id taken from the clientId header.
func ClientID(v string) zap.Field { return zap.String("client_id", v) }

// ThrottleKey never carries the raw email; callers pass the hashed key.
func ThrottleKey(v string) zap.Field { return zap.String("throttle_key", v) }

// EmailMasked logs an address as "ab***@domain".
func EmailMasked(email string) zap.Field { return zap.String("email_masked", MaskEmail(email)) }

// ─── System ───

func Component(v string) zap.Field { return zap.String("component", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }

// MaskEmail keeps the first two characters of the local part and the domain.
func MaskEmail(email string) string {
	if len(email) < 3 {
		return "***"
	}
	at := -1
	for i, c := range email {
		if c == '@' {
			at = i
			break
		}
	}
	if at < 2 {
		return email[:2] + "***"
	}
	return email[:2] + "***" + email[at:]
}
