package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleClient, RoleMember, RolePM, RoleDirector, RolePresident} {
		assert.True(t, ValidRole(role), role)
	}
	assert.False(t, ValidRole("intern"))
	assert.False(t, ValidRole(""))
	assert.False(t, ValidRole("President"))
}

func TestValidStatus(t *testing.T) {
	for _, status := range []string{StatusPending, StatusInProgress, StatusCompleted} {
		assert.True(t, ValidStatus(status), status)
	}
	assert.False(t, ValidStatus("done"))
	assert.False(t, ValidStatus(""))
}
