package adminauth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/draycottmotors/adminauth/metrics"
	"github.com/draycottmotors/adminauth/token"
)

// AttemptLimiter is the rate-limit contract the engine depends on.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// TokenService is the token contract the engine depends on. The concrete
// implementation is injected so store backends can be swapped freely.
type TokenService interface {
	IssuePair(identity Identity) (*token.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (*token.Pair, error)
	RevokeToken(ctx context.Context, tokenStr string) error
	VerifyAccess(ctx context.Context, tokenStr string) (*token.Claims, error)
}

// Deps are the engine's injected collaborators. Captcha and Metrics are
// optional; everything else is required.
type Deps struct {
	Limiter     AttemptLimiter
	Tokens      TokenService
	Credentials CredentialVerifier
	Captcha     CaptchaVerifier
	Metrics     *metrics.Metrics
	Log         *zap.Logger
}

// Engine coordinates the rate limiter, the external credential and
// CAPTCHA verifiers, and the token service to complete login, logout,
// and refresh flows.
type Engine struct {
	config Config
	deps   Deps
	log    *zap.Logger
}

// New validates deps and creates an Engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Limiter == nil || deps.Tokens == nil || deps.Credentials == nil {
		return nil, ErrEngineNotReady
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	return &Engine{config: cfg, deps: deps, log: deps.Log}, nil
}

// Login runs one login attempt: rate limit first, then CAPTCHA, then
// credentials, then token issuance. The ordering matters: no credential
// work happens for a rate-limited caller.
func (e *Engine) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	allowed, err := e.deps.Limiter.Allow(ctx, "login:"+in.ClientKey)
	if err != nil {
		// Fail open: a limiter outage must not cascade into a full login
		// lockout. The asymmetry with the fail-closed revocation check is
		// intentional.
		e.log.Warn("rate limiter unavailable, allowing attempt",
			zap.String("client_key", in.ClientKey),
			zap.Error(err),
		)
		allowed = true
	}
	if !allowed {
		e.deps.Metrics.ObserveLogin(metrics.OutcomeRateLimited)
		e.log.Info("login rate limited", zap.String("client_key", in.ClientKey))
		return nil, ErrLoginRateLimited
	}

	if e.deps.Captcha != nil {
		if err := e.verifyCaptcha(ctx, in.CaptchaToken); err != nil {
			e.deps.Metrics.ObserveLogin(metrics.OutcomeCaptchaRejected)
			return nil, err
		}
	}

	identity, err := e.deps.Credentials.VerifyCredentials(ctx, in.Email, in.Password)
	if err != nil || identity == nil {
		// Provider detail stays in the log; the client only ever sees the
		// generic failure so email existence is not revealed.
		e.deps.Metrics.ObserveLogin(metrics.OutcomeInvalidCredentials)
		e.log.Info("credential verification failed",
			zap.String("client_key", in.ClientKey),
			zap.Error(err),
		)
		return nil, ErrInvalidCredentials
	}

	pair, err := e.deps.Tokens.IssuePair(*identity)
	if err != nil {
		e.deps.Metrics.ObserveLogin(metrics.OutcomeError)
		return nil, fmt.Errorf("issue token pair: %w", err)
	}

	e.deps.Metrics.ObserveLogin(metrics.OutcomeSuccess)
	e.log.Info("admin login",
		zap.String("subject", identity.ID),
		zap.String("role", identity.Role),
	)

	return &LoginResult{Profile: ProfileOf(*identity), Tokens: pair}, nil
}

// Refresh rotates the presented refresh token into a new pair.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	return e.deps.Tokens.Refresh(ctx, refreshToken)
}

// Logout revokes both tokens until their natural expiry. Best effort:
// a failure to revoke is logged but does not block the logout, since
// the caller clears the cookies either way.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) {
	for _, tokenStr := range []string{accessToken, refreshToken} {
		if tokenStr == "" {
			continue
		}
		if err := e.deps.Tokens.RevokeToken(ctx, tokenStr); err != nil {
			e.log.Warn("logout revocation failed", zap.Error(err))
		}
	}
}

// CurrentUser verifies the access token and returns its public profile.
func (e *Engine) CurrentUser(ctx context.Context, accessToken string) (Profile, error) {
	claims, err := e.deps.Tokens.VerifyAccess(ctx, accessToken)
	if err != nil {
		return Profile{}, err
	}

	return ProfileOf(claims.Identity()), nil
}

func (e *Engine) verifyCaptcha(ctx context.Context, captchaToken string) error {
	if captchaToken == "" {
		return ErrCaptchaRejected
	}

	result, err := e.deps.Captcha.Verify(ctx, captchaToken, e.config.Captcha.Action, e.config.Captcha.MinScore)
	if err != nil {
		e.log.Warn("captcha verification error", zap.Error(err))
		return ErrCaptchaRejected
	}

	if !result.Success || result.Score < e.config.Captcha.MinScore {
		return ErrCaptchaRejected
	}
	if result.Action != "" && e.config.Captcha.Action != "" && result.Action != e.config.Captcha.Action {
		return ErrCaptchaRejected
	}

	return nil
}
