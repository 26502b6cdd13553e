// Package domain holds the small identity types shared across modules.
package domain

import "fmt"

// MaxPrincipalLen bounds principal identifiers so composite store keys stay
// cheap to build and index.
const MaxPrincipalLen = 128

// Principal is an opaque, globally unique identity. Agents, owners, and
// payment recipients are all principals; the core never inspects the format.
type Principal string

// ParsePrincipal validates an incoming identifier and returns it as a Principal.
func ParsePrincipal(s string) (Principal, error) {
	if s == "" {
		return "", fmt.Errorf("principal cannot be empty")
	}
	if len(s) > MaxPrincipalLen {
		return "", fmt.Errorf("principal exceeds %d bytes", MaxPrincipalLen)
	}
	return Principal(s), nil
}

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool {
	return p == ""
}

// String returns the raw identifier.
func (p Principal) String() string {
	return string(p)
}
