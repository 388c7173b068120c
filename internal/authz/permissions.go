package authz

import "trackcrm/internal/models"

// Capabilities is the set of boolean permissions a role grants. It is derived
// from the role alone and never stored.
type Capabilities struct {
	ManageRoles         bool
	ManageAllProjects   bool
	ManageTrackProjects bool
	CompleteProjects    bool
	ViewAll             bool
}

// permissionsByRole is the single source of truth for role permissions.
// Built once, read-only after init; role-string comparisons elsewhere are a bug.
var permissionsByRole = map[string]Capabilities{
	models.RolePresident: {
		ManageRoles:         true,
		ManageAllProjects:   true,
		ManageTrackProjects: true,
		CompleteProjects:    true,
		ViewAll:             true,
	},
	models.RoleDirector: {
		ManageRoles:         false,
		ManageAllProjects:   false,
		ManageTrackProjects: true,
		CompleteProjects:    true,
		ViewAll:             true,
	},
	models.RolePM: {
		ManageRoles:         false,
		ManageAllProjects:   false,
		ManageTrackProjects: true,
		CompleteProjects:    false,
		ViewAll:             true,
	},
	models.RoleMember: {},
	models.RoleClient: {},
}

// CapabilitiesFor returns the capability set for a role. Unknown roles get an
// empty set and ok=false.
func CapabilitiesFor(role string) (Capabilities, bool) {
	caps, ok := permissionsByRole[role]
	return caps, ok
}

// TrackExempt reports whether the capability set carries cross-track access.
// Only the president holds both manage-all-projects and view-all; every other
// role is bound to its own track.
func (c Capabilities) TrackExempt() bool {
	return c.ManageAllProjects && c.ViewAll
}
