package cypher

import (
	"context"
	"fmt"

	"github.com/orneryd/nornogm/pkg/model"
)

// Traversal models a single-hop navigation from a source (a label, an
// instance, a node set, or another traversal) through one relationship
// definition. It executes by wrapping itself into a node set rooted at
// the traversal.
type Traversal struct {
	runner  *Runner
	name    string
	def     *model.RelationshipDef
	source  source
	target  *model.Class
	filters []*Q
	err     error
}

// NewTraversal starts a traversal from a node set through the named
// relationship definition of its class.
func NewTraversal(ns *NodeSet, relName string) *Traversal {
	t := &Traversal{runner: ns.runner, name: relName, source: source{kind: sourceNodeSet, nodeSet: ns}}
	def, ok := ns.class.Relationship(relName)
	if !ok {
		t.err = &model.NoSuchRelationshipError{Class: ns.class, Name: relName}
		return t
	}
	t.def = def
	t.target, t.err = def.Target(ns.runner.Registry)
	return t
}

// NodeTraversal starts a traversal from one saved instance.
func NodeTraversal(r *Runner, node *model.Node, relName string) *Traversal {
	t := &Traversal{runner: r, name: relName, source: source{kind: sourceInstance, node: node}}
	def, ok := node.Class().Relationship(relName)
	if !ok {
		t.err = &model.NoSuchRelationshipError{Class: node.Class(), Name: relName}
		return t
	}
	if !node.Saved() {
		t.err = fmt.Errorf("cannot traverse from an unsaved node")
		return t
	}
	t.def = def
	t.target, t.err = def.Target(r.Registry)
	return t
}

// Target returns the class at the far end of the traversal.
func (t *Traversal) Target() *model.Class { return t.target }

// Match filters the traversed relationships by their own properties;
// only available when the definition carries a relationship model.
func (t *Traversal) Match(qs ...*Q) *Traversal {
	c := *t
	c.filters = append(append([]*Q(nil), t.filters...), qs...)
	if c.err == nil && t.def != nil && t.def.Model == nil && len(qs) > 0 {
		c.err = fmt.Errorf("match with filter is only available on relationships with a model")
	}
	return &c
}

// NodeSet wraps the traversal into a node set over its target class, so
// the full chaining surface applies to traversal results.
func (t *Traversal) NodeSet() *NodeSet {
	ns := &NodeSet{
		runner: t.runner,
		class:  t.target,
		source: source{kind: sourceTraversal, traversal: t},
		err:    t.err,
	}
	return ns
}

// All resolves every node at the end of the traversal.
func (t *Traversal) All(ctx context.Context) ([]any, error) {
	return t.NodeSet().All(ctx)
}

// Count returns the number of traversed nodes.
func (t *Traversal) Count(ctx context.Context) (int, error) {
	return t.NodeSet().Count(ctx)
}
