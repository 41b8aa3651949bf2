package adminauth

import "context"

// CredentialVerifier checks an email/password pair against the identity
// backend and returns the authenticated identity. Implementations must
// not distinguish an unknown email from a wrong password in their error;
// the engine collapses every failure to the generic one regardless.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*Identity, error)
}

// CaptchaResult is the verdict returned by a CAPTCHA provider.
type CaptchaResult struct {
	Success bool
	Score   float64
	Action  string
}

// CaptchaVerifier validates a client-supplied CAPTCHA token with the
// external provider. expectedAction and minScore are passed through so
// providers that support them can reject server-side; the engine
// re-checks both on the result either way.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, expectedAction string, minScore float64) (CaptchaResult, error)
}
