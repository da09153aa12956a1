// Package cypher is the query-construction and traversal-resolution
// engine: it turns a chain of declarative filter, traversal, ordering,
// and annotation calls on a typed node set into one Cypher string plus a
// parameter map, executes it through an injected executor, and resolves
// returned graph primitives back into model instances, including
// rebuilding multi-hop result subgraphs.
//
//	ns := cypher.Nodes(runner, coffee).
//	    Filter(cypher.Where("price__gt", 2)).
//	    Traverse(cypher.NewPath("suppliers")).
//	    OrderBy("-name")
//	rows, err := ns.All(ctx)
//
// A Builder is single-use: one is constructed, built, serialized, and
// discarded per logical query. NodeSet chaining methods return modified
// copies, so a partially built set can be shared and forked safely.
package cypher
