// Package audit implements async event dispatching for security-relevant
// authentication operations (OTP requests, verifications, logouts, refreshes).
//
// # Components
//
//   - [Sink] — interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event] — structured audit record with timestamp, type, subject email, IP,
//     user agent and metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit — that responsibility belongs to the Engine flows. Durable
// login-history and logout-audit rows are written by collaborators, not here.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import otpAuth or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
