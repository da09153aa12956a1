// Package model holds the static definition layer: property declarations
// with deflate/inflate conversion, node and relationship classes, the
// class registry keyed by label set and relation type, and the resolver
// that materializes raw driver values back into typed instances.
//
// Classes are declared once at startup and registered explicitly:
//
//	coffee := model.NewClass("Coffee",
//	    model.String("name", model.Unique(), model.Required()),
//	    model.Int("price"),
//	)
//	coffee.Relate("suppliers", "COFFEE SUPPLIERS", model.Incoming, "Supplier")
//	registry.MustRegister(coffee)
//
// After registration the registry answers reverse lookups: given the
// label set the database reports for a node, which class inflates it.
package model
