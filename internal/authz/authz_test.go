package authz

import (
	"testing"

	"trackcrm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allOps = []Operation{
	OpCreateProject, OpReadProject, OpUpdateProject, OpDeleteProject,
	OpCreateTask, OpUpdateTask, OpDeleteTask, OpCompleteTask,
}

func TestCapabilitiesForKnownRoles(t *testing.T) {
	cases := []struct {
		role string
		want Capabilities
	}{
		{models.RolePresident, Capabilities{true, true, true, true, true}},
		{models.RoleDirector, Capabilities{false, false, true, true, true}},
		{models.RolePM, Capabilities{false, false, true, false, true}},
		{models.RoleMember, Capabilities{}},
		{models.RoleClient, Capabilities{}},
	}
	for _, tc := range cases {
		caps, ok := CapabilitiesFor(tc.role)
		require.True(t, ok, "role %s should be known", tc.role)
		assert.Equal(t, tc.want, caps, "capabilities for %s", tc.role)
	}
}

func TestCapabilitiesForUnknownRole(t *testing.T) {
	caps, ok := CapabilitiesFor("admin")
	assert.False(t, ok)
	assert.Equal(t, Capabilities{}, caps)
}

// Capability coverage narrows monotonically: president covers director,
// director covers pm.
func TestCapabilityHierarchy(t *testing.T) {
	covers := func(a, b Capabilities) bool {
		return (a.ManageRoles || !b.ManageRoles) &&
			(a.ManageAllProjects || !b.ManageAllProjects) &&
			(a.ManageTrackProjects || !b.ManageTrackProjects) &&
			(a.CompleteProjects || !b.CompleteProjects) &&
			(a.ViewAll || !b.ViewAll)
	}
	president, _ := CapabilitiesFor(models.RolePresident)
	director, _ := CapabilitiesFor(models.RoleDirector)
	pm, _ := CapabilitiesFor(models.RolePM)

	assert.True(t, covers(president, director))
	assert.True(t, covers(director, pm))
}

func TestTrackExemptOnlyPresident(t *testing.T) {
	for _, role := range []string{models.RoleDirector, models.RolePM, models.RoleMember, models.RoleClient} {
		caps, _ := CapabilitiesFor(role)
		assert.False(t, caps.TrackExempt(), "role %s must not be track exempt", role)
	}
	caps, _ := CapabilitiesFor(models.RolePresident)
	assert.True(t, caps.TrackExempt())
}

// A non-president on a foreign track is Forbidden for every operation,
// whatever its role's capability flags say.
func TestCrossTrackAlwaysForbidden(t *testing.T) {
	for _, role := range []string{models.RoleDirector, models.RolePM, models.RoleMember, models.RoleClient} {
		id := Identity{UserID: 1, Role: role, Track: "technology"}
		for _, op := range allOps {
			err := Authorize(id, op, "finance")
			assert.ErrorIs(t, err, ErrForbidden, "role %s op %d", role, op)
		}
	}
}

func TestPresidentBypassesTrackRule(t *testing.T) {
	id := Identity{UserID: 1, Role: models.RolePresident, Track: "technology"}
	for _, op := range allOps {
		assert.NoError(t, Authorize(id, op, "finance"), "op %d", op)
	}
}

func TestProjectManagementByRole(t *testing.T) {
	cases := []struct {
		role    string
		allowed bool
	}{
		{models.RolePresident, true},
		{models.RoleDirector, true},
		{models.RolePM, true},
		{models.RoleMember, false},
		{models.RoleClient, false},
	}
	for _, tc := range cases {
		id := Identity{UserID: 1, Role: tc.role, Track: "consulting"}
		for _, op := range []Operation{OpCreateProject, OpUpdateProject, OpDeleteProject} {
			err := Authorize(id, op, "consulting")
			if tc.allowed {
				assert.NoError(t, err, "role %s op %d", tc.role, op)
			} else {
				assert.ErrorIs(t, err, ErrForbidden, "role %s op %d", tc.role, op)
			}
		}
	}
}

func TestCompleteTaskRequiresCompletionCapability(t *testing.T) {
	// pm manages track tasks but cannot complete them
	pm := Identity{UserID: 1, Role: models.RolePM, Track: "education"}
	assert.NoError(t, Authorize(pm, OpCreateTask, "education"))
	assert.ErrorIs(t, Authorize(pm, OpCompleteTask, "education"), ErrForbidden)

	director := Identity{UserID: 2, Role: models.RoleDirector, Track: "education"}
	assert.NoError(t, Authorize(director, OpCompleteTask, "education"))
}

func TestReadRequiresViewAll(t *testing.T) {
	for _, role := range []string{models.RoleMember, models.RoleClient} {
		id := Identity{UserID: 1, Role: role, Track: "finance"}
		assert.ErrorIs(t, Authorize(id, OpReadProject, "finance"), ErrForbidden, "role %s", role)
	}
	pm := Identity{UserID: 2, Role: models.RolePM, Track: "finance"}
	assert.NoError(t, Authorize(pm, OpReadProject, "finance"))
	assert.ErrorIs(t, Authorize(pm, OpReadProject, "technology"), ErrForbidden)
}

func TestUnknownRoleForbidden(t *testing.T) {
	id := Identity{UserID: 1, Role: "superuser", Track: "finance"}
	for _, op := range allOps {
		assert.ErrorIs(t, Authorize(id, op, "finance"), ErrForbidden)
	}
}

func TestCreationTrack(t *testing.T) {
	pm := Identity{UserID: 1, Role: models.RolePM, Track: "technology"}
	assert.Equal(t, "technology", CreationTrack(pm, ""))
	// An explicit track is kept as requested; Authorize is what rejects a
	// foreign one for non-presidents.
	assert.Equal(t, "finance", CreationTrack(pm, "finance"))
	assert.ErrorIs(t, Authorize(pm, OpCreateProject, "finance"), ErrForbidden)

	president := Identity{UserID: 2, Role: models.RolePresident, Track: "technology"}
	assert.Equal(t, "finance", CreationTrack(president, "finance"))
	assert.NoError(t, Authorize(president, OpCreateProject, "finance"))
}
