// Package adminauth is the admin authentication and session-security
// core for the dealership platform: issuance, verification, rotation,
// and revocation of signed access/refresh tokens, login rate limiting,
// and double-submit CSRF protection, all over a pluggable key-value
// store.
//
// The surrounding site (inventory pages, uploads, forms) is a plain
// HTTP collaborator that calls into this core through the Engine, the
// middleware guards, and the httpapi handlers. Nothing here renders UI
// or talks to a specific identity or CAPTCHA vendor; those are injected
// behind the CredentialVerifier and CaptchaVerifier contracts.
//
// Services are constructed once at process start and passed by
// reference; there is no hidden global state.
package adminauth
