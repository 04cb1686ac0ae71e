package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleEditor))
	assert.True(t, RoleEditor.AtLeast(RoleViewer))
	assert.True(t, RoleViewer.AtLeast(RoleViewer))

	assert.False(t, RoleViewer.AtLeast(RoleEditor))
	assert.False(t, RoleAdmin.AtLeast(RoleOwner))
}

func TestUnknownRoleGrantsNothing(t *testing.T) {
	corrupt := Role("superuser")
	assert.False(t, corrupt.Valid())
	assert.False(t, corrupt.AtLeast(RoleViewer), "an unrecognized role must never pass a check")
}

func TestValidTaskStatus(t *testing.T) {
	assert.True(t, ValidTaskStatus(TaskStatusOpen))
	assert.True(t, ValidTaskStatus(TaskStatusInProgress))
	assert.True(t, ValidTaskStatus(TaskStatusDone))
	assert.False(t, ValidTaskStatus("cancelled"))
}
