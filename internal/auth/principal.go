// Package auth owns who is calling: center and admin logins, the signed access
// tokens, and the server-side registry that replaces the browser's login flags.
package auth

import (
	"context"
	"strings"
)

// Role separates center operators from the administrator
type Role string

const (
	RoleCenter Role = "center"
	RoleAdmin  Role = "admin"
)

// UnknownUser is the actor name used when neither a name nor an email is known
const UnknownUser = "unknown user"

// Principal is the authenticated caller
type Principal struct {
	Role       Role   `json:"role"`
	UserID     string `json:"userId"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	CenterID   string `json:"centerId,omitempty"`
	CenterName string `json:"centerName,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	TokenID    string `json:"-"`
}

// IsAdmin reports whether p is the administrator
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ActorName is the name written into audit records: the display name, else the
// local part of the email, else UnknownUser.
func (p Principal) ActorName() string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	if local, _, _ := strings.Cut(p.Email, "@"); local != "" {
		return local
	}
	return UnknownUser
}

// InCenter returns a copy of p acting on behalf of another center.
// Admin actions are logged under the center they touch.
func (p Principal) InCenter(centerID, centerName string) Principal {
	p.CenterID = centerID
	p.CenterName = centerName
	return p
}

type principalKey struct{}

// ContextWithPrincipal stores p in ctx
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by ContextWithPrincipal
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
