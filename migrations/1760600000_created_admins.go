package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewAuthCollection(adminCollection())

		collection.Fields.Add(&core.TextField{
			Name: "name",
			Max:  120,
		})

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId(adminCollection())
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
