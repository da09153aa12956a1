package cypher

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/orneryd/nornogm/pkg/model"
)

func (ns *NodeSet) resolver() *model.Resolver {
	return &model.Resolver{Registry: ns.runner.Registry, Database: ns.runner.Database}
}

func (ns *NodeSet) run(ctx context.Context, b *Builder, query string) ([][]any, []string, error) {
	ns.runner.log().Debug("executing query",
		zap.String("query", query),
		zap.Int("params", len(b.params)))
	result, err := ns.runner.Exec.Execute(ctx, query, b.params)
	if err != nil {
		return nil, nil, err
	}
	rows, err := ns.resolver().ResolveRows(result.Rows)
	if err != nil {
		return nil, nil, err
	}
	return rows, result.Columns, nil
}

// All builds and executes the query, resolving every returned graph
// primitive into a model instance. Rows with a single column yield their
// single value; wider rows are yielded whole as []any.
func (ns *NodeSet) All(ctx context.Context) ([]any, error) {
	return ns.execute(ctx, false)
}

// AllLazy is All with the return identifiers wrapped in the identity
// function: rows carry element ids instead of hydrated entities.
func (ns *NodeSet) AllLazy(ctx context.Context) ([]any, error) {
	return ns.execute(ctx, true)
}

func (ns *NodeSet) execute(ctx context.Context, lazy bool) ([]any, error) {
	b := NewBuilder(ns)
	if err := b.buildAST(); err != nil {
		return nil, err
	}
	if lazy {
		if b.ast.returnClause != "" {
			b.ast.returnClause = fmt.Sprintf("%s(%s)", b.identity, b.ast.returnClause)
		} else {
			for i, item := range b.ast.additionalReturn {
				b.ast.additionalReturn[i] = fmt.Sprintf("%s(%s)", b.identity, item)
			}
		}
	}
	query, err := b.buildQuery()
	if err != nil {
		return nil, err
	}
	rows, _, err := ns.run(ctx, b, query)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(rows))
	if len(rows) > 0 && len(rows[0]) == 1 {
		for _, row := range rows {
			out = append(out, row[0])
		}
		return out, nil
	}
	for _, row := range rows {
		out = append(out, row)
	}
	return out, nil
}

// Count builds a count aggregation over the set.
func (ns *NodeSet) Count(ctx context.Context) (int, error) {
	b := NewBuilder(ns)
	if err := b.buildAST(); err != nil {
		return 0, err
	}
	return ns.count(ctx, b)
}

func (ns *NodeSet) count(ctx context.Context, b *Builder) (int, error) {
	query, err := b.countQuery()
	if err != nil {
		return 0, err
	}
	rows, _, err := ns.run(ctx, b, query)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, fmt.Errorf("count query returned no rows")
	}
	switch n := rows[0][0].(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected count value %T", rows[0][0])
	}
}

// Exists reports whether the set matches at least one node.
func (ns *NodeSet) Exists(ctx context.Context) (bool, error) {
	n, err := ns.Count(ctx)
	return n > 0, err
}

// Contains reports whether the given saved node belongs to the set, by
// identity equality on the primary return identifier.
func (ns *NodeSet) Contains(ctx context.Context, node *model.Node) (bool, error) {
	if !node.Saved() {
		return false, fmt.Errorf("cannot check containment of an unsaved node")
	}
	b := NewBuilder(ns)
	if err := b.buildAST(); err != nil {
		return false, err
	}
	query, err := b.containsQuery(node.ElementID())
	if err != nil {
		return false, err
	}
	rows, _, err := ns.run(ctx, b, query)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return false, nil
	}
	n, _ := rows[0][0].(int64)
	return n >= 1, nil
}

func (ns *NodeSet) firstNodes(ctx context.Context, limit int, qs []*Q) ([]any, error) {
	set := ns
	if len(qs) > 0 {
		set = set.Filter(qs...)
	}
	set = set.Limit(limit)
	return set.All(ctx)
}

// Get returns the single node matching the set plus the given filters.
// No match returns a NotFoundError; several matches return a
// MultipleNodesReturnedError.
func (ns *NodeSet) Get(ctx context.Context, qs ...*Q) (*model.Node, error) {
	results, err := ns.firstNodes(ctx, 2, qs)
	if err != nil {
		return nil, err
	}
	if len(results) > 1 {
		return nil, &model.MultipleNodesReturnedError{Class: ns.class}
	}
	if len(results) == 0 {
		return nil, &model.NotFoundError{Class: ns.class}
	}
	return asNode(results[0], ns.class)
}

// GetOrNone is Get downgrading the single "not found" case to nil.
func (ns *NodeSet) GetOrNone(ctx context.Context, qs ...*Q) (*model.Node, error) {
	node, err := ns.Get(ctx, qs...)
	if _, notFound := err.(*model.NotFoundError); notFound {
		return nil, nil
	}
	return node, err
}

// First returns the first matching node, or a NotFoundError.
func (ns *NodeSet) First(ctx context.Context, qs ...*Q) (*model.Node, error) {
	results, err := ns.firstNodes(ctx, 1, qs)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &model.NotFoundError{Class: ns.class}
	}
	return asNode(results[0], ns.class)
}

// FirstOrNone is First downgrading the single "not found" case to nil.
func (ns *NodeSet) FirstOrNone(ctx context.Context, qs ...*Q) (*model.Node, error) {
	node, err := ns.First(ctx, qs...)
	if _, notFound := err.(*model.NotFoundError); notFound {
		return nil, nil
	}
	return node, err
}

func asNode(v any, class *model.Class) (*model.Node, error) {
	node, ok := v.(*model.Node)
	if !ok {
		return nil, fmt.Errorf("expected a %q node, got %T", class.Name(), v)
	}
	return node, nil
}

// ResolveSubgraph executes the query in named-column mode and rebuilds
// the nested result structure: one root node per row, with traversed
// nodes and relationships attached to Relations under their path-segment
// names, recursively. Requires at least one traversal path registered
// with its nodes and relationships in the return set.
func (ns *NodeSet) ResolveSubgraph(ctx context.Context) ([]*model.Node, error) {
	if len(ns.relationsToFetch) > 0 && !ns.relationsToFetch[0].IncludeInReturn {
		return nil, fmt.Errorf("cannot resolve subgraphs over traversals excluded from the return set; register paths with NewPath instead")
	}
	b := NewBuilder(ns)
	if err := b.buildAST(); err != nil {
		return nil, err
	}
	if len(b.ast.subgraph) == 0 {
		return nil, fmt.Errorf("nothing to resolve; include relations in the result using Traverse or Filter")
	}
	query, err := b.buildQuery()
	if err != nil {
		return nil, err
	}
	rows, columns, err := ns.run(ctx, b, query)
	if err != nil {
		return nil, err
	}

	var results []*model.Node
	for _, row := range rows {
		var root *model.Node
		others := map[string]any{}
		for i, value := range row {
			name := columns[i]
			if node, ok := value.(*model.Node); ok &&
				node.Class() == ns.class && !strings.Contains(name, "_") {
				root = node
				continue
			}
			// Collected lists of lists flatten one level.
			if list, ok := value.([]any); ok && len(list) > 0 {
				if inner, ok := list[0].([]any); ok {
					others[name] = inner
					continue
				}
			}
			others[name] = value
		}
		if root == nil {
			return nil, fmt.Errorf("no root %q node in result row", ns.class.Name())
		}
		results = append(results, toSubgraph(root, others, b.ast.subgraph))
	}
	return results, nil
}

// toSubgraph attaches matched row entries to the root's Relations map,
// suffixing the key when the attached value is a relationship rather
// than a node, and recursing into the children of each matched hop.
func toSubgraph(root *model.Node, others map[string]any, subgraph map[string]*subgraphNode) *model.Node {
	root.Relations = map[string]any{}
	for name, hop := range subgraph {
		for varName, value := range others {
			if value == nil || (varName != hop.variableName && varName != hop.relVariable) {
				continue
			}
			key := name
			switch v := value.(type) {
			case []any:
				if len(v) > 0 {
					if _, isRel := v[0].(*model.Relationship); isRel {
						key += "_relationship"
					}
				}
				attached := make([]any, len(v))
				for i, item := range v {
					attached[i] = attach(item, others, hop.children)
				}
				root.Relations[key] = attached
			default:
				if _, isRel := v.(*model.Relationship); isRel {
					key += "_relationship"
				}
				root.Relations[key] = attach(v, others, hop.children)
			}
		}
	}
	return root
}

func attach(value any, others map[string]any, children map[string]*subgraphNode) any {
	if node, ok := value.(*model.Node); ok {
		return toSubgraph(node, others, children)
	}
	return value
}
