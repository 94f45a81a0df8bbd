// Package internal contains helper utilities that are intentionally private to
// otpAuth, including secure random code generation.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - rate — in-process token-bucket rate limit primitives
//   - config — environment-driven service configuration
//   - db — pgx-backed repositories for users, login history and logout audit
//   - handler — gin HTTP handlers for the auth and user surfaces
//   - mailer — SMTP dispatch for OTP delivery
//
// # What this package must NOT do
//
//   - Export types that appear in the public otpAuth API.
//   - Be imported by any package outside the otpAuth module.
package internal
