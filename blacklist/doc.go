// Package blacklist implements the token revocation registry: a durable
// denylist of token ids (jti) considered invalid before their natural expiry.
//
// # Components
//
//   - [Registry] — revocation decisions: point revoke, bulk revoke by subject,
//     bulk delete by subject+type, lazy per-read cleanup.
//   - [Store] — persistence contract with a pgx implementation ([PostgresStore])
//     and an in-process implementation ([MemoryStore]).
//   - [Sweeper] — hourly background deletion of entries past their expiry.
//
// # Design
//
// Tokens are stateless by default; the registry is sized only by
// currently-outstanding revoked tokens, never by all tokens issued. An entry
// whose expiry has passed is logically dead: IsRevoked treats it as not
// revoked and deletes it opportunistically, and the sweeper removes the rest.
//
// # What this package must NOT do
//
//   - Issue or refresh tokens (jwt package).
//   - Decide which HTTP outcome a revoked token produces (handlers).
package blacklist
