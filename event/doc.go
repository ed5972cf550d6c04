// Package event holds the columnar representation of physics events read from
// a source, together with the catalog, pattern matching and schema resolution
// that decide which fields are read.
//
// A Batch stores scalar fields as one value per event and collection fields
// as jagged arrays (flat values plus per-event offsets). Collection attribute
// fields follow the "<collection>_<attribute>" naming convention, so the
// pattern "Cluster_*" selects every attribute of the Cluster collection.
//
// Field selection is resolved once, before any data is read:
//
//	catalog, _ := src.Fields(ctx)
//	schema, err := event.NewSchema(catalog, []string{"eventNumber"},
//	    []event.Collection{{Name: "Cluster", Attributes: []string{"pt", "eta"}}})
//	batch, err := src.Read(ctx, schema.Fields())
package event
