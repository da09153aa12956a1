package cypher

import "github.com/orneryd/nornogm/pkg/model"

// queryAST is the mutable accumulator a Builder fills before
// serialization: clause fragments in the order the grammar wants them,
// pagination bounds, and the subgraph map mirroring every traversal path
// registered during the build.
type queryAST struct {
	lookup           string // single-node-by-identity preamble
	match            []string
	optionalMatch    []string
	where            []string
	optionalWhere    []string
	withClause       string
	returnClause     string
	additionalReturn []string
	orderBy          []string
	skip             int
	limit            int
	hasSkip          bool
	hasLimit         bool
	isCount          bool

	// mixedFilters marks that an OR mixing required- and optional-origin
	// statements was folded into the optional group, which needs a bare
	// WITH * so the post-hoc WHERE sees every bound variable.
	mixedFilters bool

	resultClass *model.Class
	vector      *vectorQuery
	subgraph    map[string]*subgraphNode
}

func newQueryAST() *queryAST {
	return &queryAST{subgraph: map[string]*subgraphNode{}}
}

// subgraphNode records the identifiers allocated for one traversal hop;
// the tree mirrors the dotted paths requested during a single build and
// is append-only. Result resolution walks it to rebuild nested
// subgraphs from flat rows.
type subgraphNode struct {
	target       *model.Class // nil for subquery-returned variables
	variableName string
	relVariable  string
	children     map[string]*subgraphNode
}

func (a *queryAST) addAdditionalReturn(name string) {
	if name == a.returnClause {
		return
	}
	for _, existing := range a.additionalReturn {
		if existing == name {
			return
		}
	}
	a.additionalReturn = append(a.additionalReturn, name)
}

// Path describes one traversal to register on a node set: the dotted
// relationship path, whether it should be matched optionally, whether
// the traversed nodes and relationships join the return set, and an
// optional alias for the final hop's identifier.
type Path struct {
	Value           string
	Optional        bool
	IncludeInReturn bool
	Alias           string

	// relFiltering marks internally registered paths whose identifier of
	// interest is the relationship, not the target node.
	relFiltering bool
}

// NewPath registers a traversal whose nodes and relationships are
// returned, the common case for subgraph resolution.
func NewPath(value string) Path {
	return Path{Value: value, IncludeInReturn: true}
}

// OptionalPath is NewPath with OPTIONAL MATCH semantics.
func OptionalPath(value string) Path {
	return Path{Value: value, Optional: true, IncludeInReturn: true}
}
