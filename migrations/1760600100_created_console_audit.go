package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("console_audit")

		// readable by console admins, written by the server only
		adminsOnly := adminsOnlyRule(adminCollection())
		collection.ListRule = types.Pointer(adminsOnly)
		collection.ViewRule = types.Pointer(adminsOnly)

		collection.Fields.Add(
			&core.TextField{Name: "event", Required: true},
			&core.TextField{Name: "action", Required: true},
			&core.TextField{Name: "actor"},
			&core.TextField{Name: "transaction_id"},
			&core.TextField{Name: "ticket_id"},
			&core.NumberField{Name: "quantity", OnlyInt: true},
			&core.TextField{Name: "detail", Max: 2000},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_console_audit_event_created", false, "event, created", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("console_audit")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
