// Package otpAuth implements passwordless email-OTP authentication: a
// one-time numeric code delivered out-of-band proves control of an email
// address, after which short-lived signed bearer tokens (access + refresh)
// carry the session.
//
// # Architecture
//
// The root package hosts the [Engine], the flow orchestrator composing:
//
//   - token-bucket request limiting (internal/rate)
//   - audit-derived account/IP lockout ([AttemptTracker])
//   - hashed OTP storage with TTL and bounded attempts ([OtpStore])
//   - token issuance and validation (jwt package)
//   - the revocation denylist (blacklist package)
//
// Collaborators outside the core — user records, login history, logout audit
// rows, outbound email — are consumed through interfaces declared in this
// package and implemented under internal/db and internal/mailer.
//
// # Storage model
//
// OTP state lives in Redis with an in-process fallback that takes over per
// operation when Redis is unreachable; the two backends are intentionally not
// synchronized. Revocation entries are the only durable state the core owns.
package otpAuth
