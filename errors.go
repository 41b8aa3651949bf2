package adminauth

import "errors"

var (
	// ErrLoginRateLimited is returned before any credential work once the
	// caller's attempt budget is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrInvalidCredentials is the generic credential failure. It never
	// distinguishes an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCaptchaRejected covers a missing CAPTCHA token, a low score, and
	// an action mismatch.
	ErrCaptchaRejected = errors.New("captcha rejected")
	// ErrEngineNotReady is returned when the engine is constructed with a
	// missing required dependency.
	ErrEngineNotReady = errors.New("engine not initialized")
)
