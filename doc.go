// Package eduauth provides the authentication core for an educational
// platform: OTP login for students, password login for teachers and
// admins, plus the client-side session plumbing that keeps a device
// signed in.
//
// Client side:
//   - Storage abstracts a small key/value store (memory or file backed)
//     that TokenStore and SessionRegistry persist into. TokenStore holds
//     the general and admin bearer tokens plus a cached user snapshot;
//     SessionRegistry enforces the one-active-session-per-user rule.
//   - AuthMachine is the authentication state machine (unauthenticated,
//     authenticating, authenticated) with an explicit transition table.
//     AuthContext drives it through the ServiceClient, and RouteGuard
//     answers per-route access questions, distinguishing a plain deny
//     from a forced logout.
//
// Server side:
//   - Users is the Bun-backed repository keyed by mobile number, with
//     automatic student registration on first OTP contact. UserProvider
//     verifies password credentials with attempt tracking and cooldown.
//   - TokenService issues and validates the signed JWTs; the role claim
//     is the only authority for admin and teacher checks.
package eduauth
