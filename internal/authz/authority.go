// Package authz holds the administrator singleton shared by every module that
// performs admin-or-owner gated writes.
package authz

import (
	"sync"

	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// Authority stores the single contract administrator, set exactly once at
// deployment. It is ordinary injected state, not a package global.
type Authority struct {
	mu          sync.RWMutex
	admin       domain.Principal
	initialized bool
}

func NewAuthority() *Authority {
	return &Authority{}
}

// Initialize sets the administrator. A second call fails regardless of the
// principal supplied.
func (a *Authority) Initialize(admin domain.Principal) error {
	if admin.IsZero() {
		return derrors.New(derrors.CodeInvalidParams, "admin principal is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return derrors.New(derrors.CodeAlreadyInitialized, "administrator already set")
	}
	a.admin = admin
	a.initialized = true
	return nil
}

// Admin returns the administrator principal, or NotInitialized before bootstrap.
func (a *Authority) Admin() (domain.Principal, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.initialized {
		return "", derrors.New(derrors.CodeNotInitialized, "administrator not set")
	}
	return a.admin, nil
}

// IsAdmin reports whether p is the administrator. False before initialization.
func (a *Authority) IsAdmin(p domain.Principal) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized && p == a.admin
}

// RequireAdminOrOwner enforces the uniform write gate: the caller must be the
// administrator or the given owner principal.
func (a *Authority) RequireAdminOrOwner(caller, owner domain.Principal) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.initialized {
		return derrors.New(derrors.CodeNotInitialized, "administrator not set")
	}
	if caller == a.admin || (caller == owner && !owner.IsZero()) {
		return nil
	}
	return derrors.New(derrors.CodeUnauthorized, "caller is neither admin nor owner")
}

// RequireAdmin enforces the admin-only gate used by global halt controls.
func (a *Authority) RequireAdmin(caller domain.Principal) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.initialized {
		return derrors.New(derrors.CodeNotInitialized, "administrator not set")
	}
	if caller != a.admin {
		return derrors.New(derrors.CodeUnauthorized, "caller is not admin")
	}
	return nil
}
