// Package rate provides internal token-bucket rate limiting primitives keyed by
// caller identifier (IP address or email) for security-sensitive authentication
// workflows.
//
// # Bucket semantics
//
// Linear lazy refill: each bucket refills proportionally to the wall-clock time
// elapsed since its last consumption, computed inside the per-key lock so that
// refill-and-consume is a single atomic step. Key classes:
//   - request_ip    — OTP request per-IP
//   - request_email — OTP request per-email
//   - logout_ip     — logout-family endpoints per-IP
//
// # What this package must NOT do
//
//   - Implement lockout policies derived from failed attempts (those live in the
//     root package's attempt tracker).
//   - Persist state; buckets are process-local and disposable by design.
//   - Be imported outside the otpAuth module.
package rate
