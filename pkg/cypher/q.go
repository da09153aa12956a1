package cypher

import "sort"

// Connector joins the children of an inner filter-tree node.
type Connector string

const (
	ConnectorAnd Connector = "AND"
	ConnectorOr  Connector = "OR"
)

// Q is an immutable boolean filter tree. A node is either a leaf holding
// one (dotted key, value) filter or an inner node joining children with
// AND or OR, optionally negated. Combining trees never mutates the
// operands; children may be structurally shared.
type Q struct {
	connector Connector
	negated   bool
	leafKey   string
	leafValue any
	children  []*Q
}

// Where builds a leaf filter. The key follows the dotted syntax: an
// optional traversal path, a property name, and an optional trailing
// operator, separated by double underscores ("price__gt",
// "suppliers__name", "since|gte" for relationship properties).
func Where(key string, value any) *Q {
	return &Q{leafKey: key, leafValue: value}
}

// Props builds an AND tree out of a filter map, in sorted key order so
// the generated query text is deterministic.
func Props(filters map[string]any) *Q {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	leaves := make([]*Q, len(keys))
	for i, k := range keys {
		leaves[i] = Where(k, filters[k])
	}
	return combine(ConnectorAnd, leaves)
}

// And joins trees with AND.
func And(qs ...*Q) *Q { return combine(ConnectorAnd, qs) }

// Or joins trees with OR.
func Or(qs ...*Q) *Q { return combine(ConnectorOr, qs) }

func combine(conn Connector, qs []*Q) *Q {
	var kept []*Q
	for _, q := range qs {
		if q == nil || q.Empty() {
			continue
		}
		kept = append(kept, q)
	}
	switch len(kept) {
	case 0:
		return &Q{connector: conn}
	case 1:
		return kept[0]
	default:
		return &Q{connector: conn, children: kept}
	}
}

// And returns a new tree joining the receiver and other with AND.
func (q *Q) And(other *Q) *Q { return And(q, other) }

// Or returns a new tree joining the receiver and other with OR.
func (q *Q) Or(other *Q) *Q { return Or(q, other) }

// Not returns a copy with the negated flag flipped, so double negation
// cancels instead of nesting NOT clauses.
func (q *Q) Not() *Q {
	c := *q
	c.negated = !c.negated
	return &c
}

// Empty reports whether the tree holds no filters at all.
func (q *Q) Empty() bool {
	return q == nil || (q.leafKey == "" && len(q.children) == 0)
}

func (q *Q) isLeaf() bool { return q.leafKey != "" }

// walkChildren yields leaves and subtrees in declaration order. A leaf
// tree behaves as an inner node with itself as only child.
func (q *Q) walkChildren() []*Q {
	if q.isLeaf() {
		return []*Q{q}
	}
	return q.children
}

func (q *Q) effectiveConnector() Connector {
	if q.connector == "" {
		return ConnectorAnd
	}
	return q.connector
}
