package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the read side of a verified identity token
type AuthClaims interface {
	Subject() string
	FullName() string
	Claim(name string) (any, bool)
	Expires() time.Time
	IssuedAt() time.Time
}

// IdentityClaims is the concrete claims payload we sign. The subject is the
// user's email; Name carries the display name the way the downstream
// middleware expects it.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Name     string         `json:"fullName,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*IdentityClaims)(nil)

// Subject returns the subject claim
func (c *IdentityClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// FullName returns the display name claim
func (c *IdentityClaims) FullName() string {
	return c.Name
}

// Claim looks up an additional claim by name
func (c *IdentityClaims) Claim(name string) (any, bool) {
	if name == "fullName" && c.Name != "" {
		return c.Name, true
	}
	if c.Metadata == nil {
		return nil, false
	}
	val, ok := c.Metadata[name]
	return val, ok
}

// SetClaim stores an additional claim, allocating the metadata map lazily
func (c *IdentityClaims) SetClaim(name string, value any) *IdentityClaims {
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	c.Metadata[name] = value
	return c
}

// Expires returns the expiration time
func (c *IdentityClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *IdentityClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
