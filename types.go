package adminauth

import (
	"github.com/draycottmotors/adminauth/token"
)

// Identity is the authenticated admin identity carried in tokens.
type Identity = token.Identity

// RoleSuperAdmin bypasses every role and permission requirement.
const RoleSuperAdmin = "super_admin"

// Profile is the public slice of an identity returned to callers after
// login. Tokens themselves travel only through the cookie channel.
type Profile struct {
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions"`
}

// ProfileOf builds the public profile for an identity.
func ProfileOf(identity Identity) Profile {
	return Profile{
		Email:       identity.Email,
		Role:        identity.Role,
		Permissions: identity.Permissions,
	}
}

// LoginInput is one login attempt. ClientKey is the rate-limit identity,
// derived from the source IP or forwarded-for header by the transport.
type LoginInput struct {
	Email        string
	Password     string
	CaptchaToken string
	ClientKey    string
}

// LoginResult is a successful login: the public profile plus the token
// pair the transport must set as HTTP-only cookies.
type LoginResult struct {
	Profile Profile
	Tokens  *token.Pair
}

// Envelope is the JSON error body returned to clients. Internal error
// detail is logged server-side and never echoed here.
type Envelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Stable client-facing error codes.
const (
	CodeAuthFailed   = "AUTH_FAILED"
	CodeRateLimit    = "RATE_LIMIT"
	CodeNetworkError = "NETWORK_ERROR"
	CodeServerError  = "SERVER_ERROR"
)
