package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminCollection(t *testing.T) {
	t.Setenv("ADMIN_COLLECTION", "")
	assert.Equal(t, "admins", adminCollection())
	assert.Equal(t, "@request.auth.collectionName = 'admins'", adminsOnlyRule(adminCollection()))

	t.Setenv("ADMIN_COLLECTION", "staff")
	assert.Equal(t, "staff", adminCollection())
	assert.Equal(t, "@request.auth.collectionName = 'staff'", adminsOnlyRule(adminCollection()))
}
