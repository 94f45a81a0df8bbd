// Package middleware exposes gin middleware adapters for strict and
// JWT-only bearer enforcement built on top of otpAuth.Engine validation.
//
// # Guards
//
//   - [Guard] — signature, expiry, revocation, and account-status checks.
//   - [RequireJWTOnly] — stateless verification, no blacklist lookup.
//
// Each guard reads the Authorization header, calls Engine.Validate, and
// injects the validated subject into the gin context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Validate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access the blacklist store (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Validate.
package middleware
