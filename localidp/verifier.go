// Package localidp is an env-configured credential verifier for
// single-admin deployments: one email plus a bcrypt password hash.
// Larger installations plug a real identity provider into the same
// contract instead.
package localidp

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/draycottmotors/adminauth/token"
)

var errMismatch = errors.New("localidp: credentials mismatch")

// Verifier checks credentials against a single configured admin account.
type Verifier struct {
	email        string
	passwordHash []byte
	identity     token.Identity
}

// New configures the verifier. passwordHash must be a bcrypt hash.
func New(email string, passwordHash []byte, role string, permissions map[string]bool) (*Verifier, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("localidp: email is required")
	}
	if _, err := bcrypt.Cost(passwordHash); err != nil {
		return nil, errors.New("localidp: password hash is not a valid bcrypt hash")
	}

	return &Verifier{
		email:        email,
		passwordHash: passwordHash,
		identity: token.Identity{
			ID:          "admin",
			Email:       email,
			Role:        role,
			Permissions: permissions,
		},
	}, nil
}

// VerifyCredentials compares email and password against the configured
// account. The bcrypt comparison runs even for unknown emails so the
// response time does not reveal whether the email exists.
func (v *Verifier) VerifyCredentials(_ context.Context, email, password string) (*token.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(v.email)) == 1

	if err := bcrypt.CompareHashAndPassword(v.passwordHash, []byte(password)); err != nil {
		return nil, errMismatch
	}
	if !emailMatch {
		return nil, errMismatch
	}

	identity := v.identity
	return &identity, nil
}
