// Package auth provides the password gate used for destructive fund operations.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/warp/chitfund/book"
	"github.com/warp/chitfund/chit"
	"github.com/warp/chitfund/logging"
)

// DefaultPassword is used when no admin password is configured.
const DefaultPassword = "admin123"

// PasswordGate authorizes an action when the credential equals the admin
// password.
type PasswordGate struct {
	password []byte
}

// NewPasswordGate builds a gate. An empty password falls back to
// DefaultPassword and logs a warning.
func NewPasswordGate(password string, logger *logging.Logger) *PasswordGate {
	if password == "" || password == DefaultPassword {
		if logger != nil {
			logger.WithComponent(logging.ComponentAuth).Warn("admin password is the default; set auth.admin_password")
		}
		password = DefaultPassword
	}
	return &PasswordGate{password: []byte(password)}
}

func (g *PasswordGate) Authorize(_ context.Context, action book.Action, credential string) error {
	if subtle.ConstantTimeCompare(g.password, []byte(credential)) != 1 {
		return fmt.Errorf("%w: invalid admin password for %s", chit.ErrUnauthorized, action)
	}
	return nil
}

var _ book.Authorizer = (*PasswordGate)(nil)
