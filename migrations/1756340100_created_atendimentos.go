package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("atendimentos")

		collection.Fields.Add(
			&core.TextField{
				Name:     "name",
				Required: true,
			},
			&core.NumberField{
				Name:     "enqueuedAt",
				Required: true,
				OnlyInt:  true,
			},
			&core.NumberField{
				Name:     "servicedAt",
				Required: true,
				OnlyInt:  true,
			},
			// Not required: a zero duration (serviced immediately) is
			// valid.
			&core.NumberField{
				Name:    "serviceDurationMs",
				OnlyInt: true,
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("atendimentos")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
