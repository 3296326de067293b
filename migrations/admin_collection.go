package migrations

import (
	"fmt"

	"ticket-console/config"
)

// adminCollection is the auth collection console admins sign in with,
// resolved from ADMIN_COLLECTION when the migration runs.
func adminCollection() string {
	return config.LoadConfig().AdminCollection
}

func adminsOnlyRule(collection string) string {
	return fmt.Sprintf("@request.auth.collectionName = '%s'", collection)
}
