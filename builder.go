package otpAuth

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/otpAuth/blacklist"
	internalaudit "github.com/MrEthical07/otpAuth/internal/audit"
	"github.com/MrEthical07/otpAuth/internal/rate"
	"github.com/MrEthical07/otpAuth/jwt"
)

// Builder defines a public type used by otpAuth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	blacklistStore blacklist.Store
	userProvider   UserProvider
	history        LoginHistoryProvider
	logoutAudit    LogoutAuditRecorder
	mailer         EmailSender
	auditSink      AuditSink
	logger         zerolog.Logger
	loggerSet      bool

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithBlacklistStore describes the withblackliststore operation and its observable behavior.
//
// WithBlacklistStore may return an error when input validation, dependency calls, or security checks fail.
// WithBlacklistStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithBlacklistStore(store blacklist.Store) *Builder {
	b.blacklistStore = store
	return b
}

// WithUserProvider describes the withuserprovider operation and its observable behavior.
//
// WithUserProvider may return an error when input validation, dependency calls, or security checks fail.
// WithUserProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithLoginHistory describes the withloginhistory operation and its observable behavior.
//
// WithLoginHistory may return an error when input validation, dependency calls, or security checks fail.
// WithLoginHistory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLoginHistory(h LoginHistoryProvider) *Builder {
	b.history = h
	return b
}

// WithLogoutAudit describes the withlogoutaudit operation and its observable behavior.
//
// WithLogoutAudit may return an error when input validation, dependency calls, or security checks fail.
// WithLogoutAudit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogoutAudit(r LogoutAuditRecorder) *Builder {
	b.logoutAudit = r
	return b
}

// WithMailer describes the withmailer operation and its observable behavior.
//
// WithMailer may return an error when input validation, dependency calls, or security checks fail.
// WithMailer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMailer(m EmailSender) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	b.loggerSet = true
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	logger := b.logger
	if !b.loggerSet {
		logger = zerolog.Nop()
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	store := b.blacklistStore
	if store == nil {
		store = blacklist.NewMemoryStore()
	}
	registry := blacklist.NewRegistry(store, jwtManager, logger)

	var sweeper *blacklist.Sweeper
	if cfg.Blacklist.SweepInterval > 0 {
		sweeper = blacklist.NewSweeper(registry, cfg.Blacklist.SweepInterval, logger)
	}

	sink := b.auditSink
	if sink == nil {
		sink = NoOpSink{}
	}
	dispatcher := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	engine := &Engine{
		config:       cfg,
		rateLimiter:  rate.New(cfg.RateLimit.bucketConfig()),
		otpStore:     NewOtpStore(cfg.OTP, b.redis, logger),
		tracker:      NewAttemptTracker(cfg.Lockout, b.history, logger),
		jwtManager:   jwtManager,
		blacklist:    registry,
		sweeper:      sweeper,
		audit:        dispatcher,
		logger:       logger,
		userProvider: b.userProvider,
		history:      b.history,
		logoutAudit:  b.logoutAudit,
		mailer:       b.mailer,
	}

	b.built = true
	return engine, nil
}
