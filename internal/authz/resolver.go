// Package authz classifies a session's authority over an event and decides
// who may claim event-manager status.
package authz

import "github.com/example/liveworship/internal/worship"

// Role is one of four mutually exclusive classifications, strongest first.
type Role int

const (
	RoleMember Role = iota
	RoleEventManager
	RoleBandAdmin
	RoleSystemAdmin
)

// String returns the stable label used in logs and API payloads.
func (r Role) String() string {
	switch r {
	case RoleSystemAdmin:
		return "system_admin"
	case RoleBandAdmin:
		return "band_admin"
	case RoleEventManager:
		return "event_manager"
	default:
		return "member"
	}
}

// Access is the resolved authority of one user over one band's events.
type Access struct {
	UserID string
	BandID string
	Role   Role
	// IsMember is false for users without a membership in the band. They
	// still classify as RoleMember unless they are system administrators.
	IsMember bool
	// ManagerAssigned reports whether some band member currently holds
	// event-manager status.
	ManagerAssigned bool
}

// Resolve classifies user against the band's memberships. Memberships for
// other bands are ignored.
func Resolve(user worship.User, memberships []worship.Membership, bandID string) Access {
	access := Access{UserID: user.ID, BandID: bandID, Role: RoleMember}

	var own *worship.Membership
	for i := range memberships {
		m := memberships[i]
		if m.BandID != bandID {
			continue
		}
		if m.IsEventManager {
			access.ManagerAssigned = true
		}
		if m.UserID == user.ID && user.ID != "" {
			own = &memberships[i]
		}
	}
	access.IsMember = own != nil

	switch {
	case user.IsSystemAdmin:
		access.Role = RoleSystemAdmin
	case own != nil && own.IsAdmin:
		access.Role = RoleBandAdmin
	case own != nil && own.IsEventManager:
		access.Role = RoleEventManager
	}
	return access
}

// CanControl reports whether the session may drive live navigation and song
// selection.
func (a Access) CanControl() bool {
	return a.Role >= RoleEventManager
}

// CanRestructure reports whether the session may add, remove, or reorder
// event songs and edit event details.
func (a Access) CanRestructure() bool {
	return a.Role >= RoleBandAdmin
}

// ShowsManagerPrompt reports whether a plain member should be offered the
// "request manager status" prompt.
func (a Access) ShowsManagerPrompt() bool {
	return a.Role == RoleMember && a.IsMember && !a.ManagerAssigned
}
