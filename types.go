package otpAuth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/otpAuth/internal/audit"
)

// UserRecord is the account record returned by [UserProvider]. The engine
// never stores credentials for a user; identity is proven per login through
// the OTP challenge.
type UserRecord struct {
	ID        int64
	Email     string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserProvider is the interface callers implement to integrate otpAuth with
// their user database. All lookups are by normalized (lowercased) email.
//
// A pgx-backed implementation lives in internal/db.
type UserProvider interface {
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	FindByID(ctx context.Context, id int64) (UserRecord, error)
	Exists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, email, name string) (UserRecord, error)
	UpdateName(ctx context.Context, id int64, name string) (UserRecord, error)
	Deactivate(ctx context.Context, id int64) error
}

// LoginAttempt is a single recorded OTP verification outcome. Owned by the
// history collaborator; the engine only appends and counts.
type LoginAttempt struct {
	Email         string
	IP            string
	UserAgent     string
	Successful    bool
	FailureReason string
	OccurredAt    time.Time
}

// LoginHistoryProvider persists login attempts and answers the windowed
// failure counts behind [AttemptTracker].
type LoginHistoryProvider interface {
	Record(ctx context.Context, attempt LoginAttempt) error
	CountFailedByEmailSince(ctx context.Context, email string, since time.Time) (int64, error)
	CountFailedByIPSince(ctx context.Context, ip string, since time.Time) (int64, error)
	StatsByEmail(ctx context.Context, email string) (LoginStats, error)
}

// LoginStats aggregates an account's login history for the stats endpoint.
type LoginStats struct {
	TotalLogins   int64
	TotalFailures int64
	LastLoginAt   time.Time // zero when the account never logged in
}

// LogoutAuditEntry is the durable record written for every logout-family
// operation.
type LogoutAuditEntry struct {
	Email              string
	LogoutType         string
	Reason             string
	IP                 string
	UserAgent          string
	SessionsTerminated int
	Success            bool
	ErrorMessage       string
	RequestID          string
	OccurredAt         time.Time
}

// LogoutAuditRecorder appends logout audit rows. Failures are logged and
// swallowed; audit must never fail a logout.
type LogoutAuditRecorder interface {
	Record(ctx context.Context, entry LogoutAuditEntry) error
}

// EmailSender delivers mail. Implementations are called on a goroutine: the
// engine treats delivery as fire-and-forget and never blocks a request on it.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TokenPair is returned by [Engine.VerifyOTP] on success.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token lifetime, seconds
}

// OTPRequestResult reports the outcome of [Engine.RequestOTP].
type OTPRequestResult struct {
	Email     string
	ExpiresIn time.Duration
}

// LogoutResult reports how many tracked sessions a logout-family operation
// terminated.
type LogoutResult struct {
	Email              string
	SessionsTerminated int
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
