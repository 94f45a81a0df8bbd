// Package jwt manages bearer-token issuance and verification for the OTP login
// flow using a symmetric signing key and strict validation semantics suitable
// for low-latency authentication paths.
//
// Tokens are stateless: validity is signature + expiry + non-revocation, with
// revocation handled by the blacklist package, not here.
package jwt
