package cypher

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/orneryd/nornogm/pkg/db"
	"github.com/orneryd/nornogm/pkg/model"
)

// Runner bundles what query execution needs: the executor, the class
// registry for result resolution, and the database scope. It is shared,
// read-only state; node sets hold a reference to one.
type Runner struct {
	Exec     db.Executor
	Registry *model.Registry
	Database string
	Logger   *zap.Logger
}

func (r *Runner) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// sourceKind tags the closed set of things a node set can be rooted at.
type sourceKind int

const (
	sourceLabel sourceKind = iota
	sourceInstance
	sourceTraversal
	sourceNodeSet
)

type source struct {
	kind      sourceKind
	class     *model.Class
	node      *model.Node
	traversal *Traversal
	nodeSet   *NodeSet
}

type hasEntry struct {
	def    *model.RelationshipDef
	exists bool
}

type extraResult struct {
	fn    Function
	alias string
}

type subqueryEntry struct {
	query          string
	params         map[string]any
	returnSet      []string
	initialContext []any
}

type orderTerm struct {
	expr string
	raw  *RawCypher
}

// NodeSet is the chainable façade over the query builder: it accumulates
// declarative state (filters, traversals, ordering, pagination,
// projections) and hands it to a fresh Builder when execution is
// requested. Every chaining method returns a modified copy; the receiver
// is never mutated, so sets can be forked.
type NodeSet struct {
	runner *Runner
	class  *model.Class
	source source

	qFilters    *Q
	mustMatch   []hasEntry
	dontMatch   []hasEntry
	orderTerms  []orderTerm
	randomOrder bool

	skip, limit       int
	hasSkip, hasLimit bool

	relationsToFetch []Path
	extraResults     []extraResult
	subqueries       []subqueryEntry
	transforms       []Transform
	vector           *VectorFilter

	// err holds the first error recorded by a chaining call; execution
	// methods surface it before touching the database.
	err error
}

// Nodes returns a node set over every node carrying the class's label.
func Nodes(r *Runner, class *model.Class) *NodeSet {
	return &NodeSet{runner: r, class: class, source: source{kind: sourceLabel, class: class}}
}

// InstanceSet returns a node set pinned to one saved node, so traversals
// and filters chain from that concrete instance.
func InstanceSet(r *Runner, node *model.Node) *NodeSet {
	ns := &NodeSet{runner: r, class: node.Class(), source: source{kind: sourceInstance, node: node}}
	if !node.Saved() {
		ns.err = fmt.Errorf("cannot build a node set from an unsaved node")
	}
	return ns
}

// Class returns the set's source class.
func (ns *NodeSet) Class() *model.Class { return ns.class }

// Err returns the first error recorded while chaining, nil when clean.
func (ns *NodeSet) Err() error { return ns.err }

func (ns *NodeSet) clone() *NodeSet {
	c := *ns
	c.mustMatch = append([]hasEntry(nil), ns.mustMatch...)
	c.dontMatch = append([]hasEntry(nil), ns.dontMatch...)
	c.orderTerms = append([]orderTerm(nil), ns.orderTerms...)
	c.relationsToFetch = append([]Path(nil), ns.relationsToFetch...)
	c.extraResults = append([]extraResult(nil), ns.extraResults...)
	c.subqueries = append([]subqueryEntry(nil), ns.subqueries...)
	c.transforms = append([]Transform(nil), ns.transforms...)
	return &c
}

func (ns *NodeSet) fail(err error) *NodeSet {
	c := ns.clone()
	if c.err == nil {
		c.err = err
	}
	return c
}

// Filter narrows the set; the given trees are ANDed with the filters
// accumulated so far.
func (ns *NodeSet) Filter(qs ...*Q) *NodeSet {
	c := ns.clone()
	c.qFilters = And(append([]*Q{c.qFilters}, qs...)...)
	return c
}

// Exclude removes matching nodes: the negation of the given trees is
// ANDed with the accumulated filters.
func (ns *NodeSet) Exclude(qs ...*Q) *NodeSet {
	c := ns.clone()
	c.qFilters = And(c.qFilters, And(qs...).Not())
	return c
}

// Has keeps only nodes that do (or, with exists false, do not) have at
// least one relationship through the named definition.
func (ns *NodeSet) Has(relName string, exists bool) *NodeSet {
	def, ok := ns.class.Relationship(relName)
	if !ok {
		return ns.fail(&model.NoSuchRelationshipError{Class: ns.class, Name: relName})
	}
	c := ns.clone()
	if exists {
		c.mustMatch = append(c.mustMatch, hasEntry{def: def, exists: true})
	} else {
		c.dontMatch = append(c.dontMatch, hasEntry{def: def})
	}
	return c
}

// OrderBy replaces the ordering terms. Prefix a property with a minus
// for descending order; a lone "?" switches to random ordering. Dotted
// terms order by traversed properties and reuse the path's identifier.
func (ns *NodeSet) OrderBy(props ...string) *NodeSet {
	c := ns.clone()
	c.orderTerms = nil
	c.randomOrder = false
	for _, prop := range props {
		prop = strings.TrimSpace(prop)
		if prop == "?" {
			c.randomOrder = true
			c.orderTerms = nil
			return c
		}
		desc := false
		if strings.HasPrefix(prop, "-") {
			prop = prop[1:]
			desc = true
		}
		if !strings.Contains(prop, "__") && !strings.Contains(prop, "|") {
			p, _, ok := c.class.Property(prop)
			if !ok {
				return ns.fail(&model.NoSuchPropertyError{Class: c.class, Property: prop})
			}
			prop = p.DBName
		}
		if desc {
			prop += " DESC"
		}
		c.orderTerms = append(c.orderTerms, orderTerm{expr: prop})
	}
	return c
}

// OrderByRaw appends a raw ordering expression; $n substitutes the
// primary identifier.
func (ns *NodeSet) OrderByRaw(raw RawCypher) *NodeSet {
	if err := raw.validate(); err != nil {
		return ns.fail(err)
	}
	c := ns.clone()
	c.orderTerms = append(c.orderTerms, orderTerm{raw: &raw})
	return c
}

// Skip sets the pagination offset.
func (ns *NodeSet) Skip(n int) *NodeSet {
	c := ns.clone()
	c.skip, c.hasSkip = n, true
	return c
}

// Limit caps the number of results.
func (ns *NodeSet) Limit(n int) *NodeSet {
	c := ns.clone()
	c.limit, c.hasLimit = n, true
	return c
}

// Traverse registers traversal paths to match alongside the source;
// paths built with NewPath join the return set and feed subgraph
// resolution. Calling Traverse replaces previously registered paths.
func (ns *NodeSet) Traverse(paths ...Path) *NodeSet {
	c := ns.clone()
	c.relationsToFetch = append([]Path(nil), paths...)
	return c
}

// FetchRelations is shorthand for Traverse over returned paths.
func (ns *NodeSet) FetchRelations(relationNames ...string) *NodeSet {
	paths := make([]Path, len(relationNames))
	for i, name := range relationNames {
		paths[i] = NewPath(name)
	}
	return ns.Traverse(paths...)
}

// TraverseRelations registers paths for matching only: the traversed
// nodes and relationships stay out of the return set.
func (ns *NodeSet) TraverseRelations(relationNames ...string) *NodeSet {
	paths := make([]Path, len(relationNames))
	for i, name := range relationNames {
		paths[i] = Path{Value: name}
	}
	return ns.Traverse(paths...)
}

// Annotate adds an aliased expression to the returned row, typically an
// aggregate over a traversed identifier.
func (ns *NodeSet) Annotate(alias string, fn Function) *NodeSet {
	c := ns.clone()
	c.extraResults = append(c.extraResults, extraResult{fn: fn, alias: alias})
	return c
}

// Nearest seeds the query with a vector-similarity preamble: the top K
// nodes by index similarity become the candidate set, bound together
// with a score companion value, before any other clause applies.
func (ns *NodeSet) Nearest(f *VectorFilter) *NodeSet {
	c := ns.clone()
	c.vector = f
	return c
}

// Subquery compiles the inner node set in its own parameter namespace
// and splices it in as a CALL block. Every name in returnSet must be a
// variable the inner query actually returns; initialContext entries may
// be plain identifier strings, name resolvers, or raw expressions.
func (ns *NodeSet) Subquery(inner *NodeSet, returnSet []string, initialContext ...any) *NodeSet {
	namespace := fmt.Sprintf("sq%d", len(ns.subqueries)+1)
	b := newBuilder(inner, namespace)
	if err := b.buildAST(); err != nil {
		return ns.fail(err)
	}
	for _, name := range returnSet {
		if !b.returnsVariable(name) {
			return ns.fail(fmt.Errorf("variable %q is not returned by subquery", name))
		}
	}
	for _, entry := range initialContext {
		switch entry.(type) {
		case string, NodeNameResolver, RelationNameResolver, RawCypher:
		default:
			return ns.fail(fmt.Errorf(
				"wrong variable in initial context: %T, expected a string or a name resolver", entry))
		}
	}
	query, err := b.buildQuery()
	if err != nil {
		return ns.fail(err)
	}
	c := ns.clone()
	c.subqueries = append(c.subqueries, subqueryEntry{
		query:          query,
		params:         b.params,
		returnSet:      returnSet,
		initialContext: initialContext,
	})
	return c
}

// TransformVar is one projected variable of an intermediate transform.
type TransformVar struct {
	// Source is an identifier string, a NodeNameResolver, a
	// RelationNameResolver, or a RawCypher.
	Source          any
	SourceProp      string
	IncludeInReturn bool
}

// Transform is an intermediate WITH projection. It discards the active
// return set and rebuilds it from its variables.
type Transform struct {
	Vars     []NamedTransformVar
	Distinct bool
	Ordering []any // string terms or RawCypher
}

// NamedTransformVar pairs a projected name with its definition; an
// ordered slice keeps the rendered projection deterministic.
type NamedTransformVar struct {
	Name string
	Var  TransformVar
}

// IntermediateTransform appends a WITH projection between the match
// clauses and the final return.
func (ns *NodeSet) IntermediateTransform(t Transform) *NodeSet {
	if len(t.Vars) == 0 {
		return ns.fail(fmt.Errorf("intermediate transform needs at least one variable"))
	}
	for _, v := range t.Vars {
		switch v.Var.Source.(type) {
		case string, NodeNameResolver, RelationNameResolver, RawCypher:
		default:
			return ns.fail(fmt.Errorf(
				"wrong source for transform variable %q: %T, expected a string or a name resolver", v.Name, v.Var.Source))
		}
	}
	c := ns.clone()
	c.transforms = append(c.transforms, t)
	return c
}
