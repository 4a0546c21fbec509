package authz

import (
	"fmt"
	"strings"
)

// Scope identifies which event screen is asking.
type Scope string

const (
	// ScopeBand is an event opened from within its band.
	ScopeBand Scope = "band"
	// ScopeGlobal is the multi-band event screen.
	ScopeGlobal Scope = "global"
)

// ParseScope maps a configuration value onto a Scope.
func ParseScope(value string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(value))) {
	case "", ScopeBand:
		return ScopeBand, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	}
	return "", fmt.Errorf("authz: unknown scope %q", value)
}

// ManagerPolicy decides whether a session may reassign event-manager status.
// The two scopes apply different product rules and are kept separate.
type ManagerPolicy interface {
	Name() string
	MayReassign(access Access) bool
}

// BandScopedPolicy lets band administrators and the current event manager
// hand over event-manager status.
type BandScopedPolicy struct{}

// Name implements ManagerPolicy.
func (BandScopedPolicy) Name() string { return "band_scoped" }

// MayReassign implements ManagerPolicy.
func (BandScopedPolicy) MayReassign(access Access) bool {
	switch access.Role {
	case RoleSystemAdmin:
		return true
	case RoleBandAdmin, RoleEventManager:
		return access.IsMember
	}
	return false
}

// GlobalScopedPolicy lets any band member who is neither administrator nor
// manager claim event-manager status.
type GlobalScopedPolicy struct{}

// Name implements ManagerPolicy.
func (GlobalScopedPolicy) Name() string { return "global_scoped" }

// MayReassign implements ManagerPolicy.
func (GlobalScopedPolicy) MayReassign(access Access) bool {
	return access.IsMember && access.Role == RoleMember
}

// PolicyFor returns the claim policy in force for scope.
func PolicyFor(scope Scope) ManagerPolicy {
	if scope == ScopeGlobal {
		return GlobalScopedPolicy{}
	}
	return BandScopedPolicy{}
}
