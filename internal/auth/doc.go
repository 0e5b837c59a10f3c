// Package auth is the request guard shared by every protected endpoint.
//
// A request passes through four stages, strictly in order, stopping at the
// first failure:
//
//	Issuer    mints a signed, time-bounded bearer token for a subject
//	Verifier  checks signature, algorithm and time bounds of a token
//	Resolver  loads the subject from the CredentialStore and checks it is active
//	Gate      checks the resolved principal's role tier
//
// Guard composes the stages behind IssueToken, Authenticate and Authorize.
// Middleware adapts Guard to net/http and maps failures to 401/403 without
// revealing which specific check failed; the precise reason is logged and
// counted.
package auth
