package cypher

import (
	"fmt"
	"regexp"
	"strings"
)

// sideEffectExpr rejects raw fragments that would mutate the graph.
var sideEffectExpr = regexp.MustCompile(`(?i:MERGE|CREATE|DELETE|DETACH)`)

// NodeNameResolver refers to the internally generated identifier of a
// traversed node by its dotted path. The literal "self" resolves to the
// primary return identifier.
type NodeNameResolver struct {
	Node string
}

func (r NodeNameResolver) resolve(b *Builder) (string, error) {
	if r.Node == "self" && b.ast.returnClause != "" {
		return b.ast.returnClause, nil
	}
	ident, _, _, ok := b.lookupQueryVariable(r.Node, false)
	if !ok {
		return "", fmt.Errorf("unable to resolve variable name for node %q", r.Node)
	}
	return ident, nil
}

// RelationNameResolver refers to the internally generated identifier of
// a traversed relationship by its dotted path.
type RelationNameResolver struct {
	Relation string
}

func (r RelationNameResolver) resolve(b *Builder) (string, error) {
	ident, _, _, ok := b.lookupQueryVariable(r.Relation, true)
	if !ok {
		return "", fmt.Errorf("unable to resolve variable name for relation %q", r.Relation)
	}
	return ident, nil
}

// RawCypher injects a raw read-only expression, usable in order-by terms
// and transform sources. $n substitutes the primary identifier when one
// is in scope. Statements with side effects are rejected.
type RawCypher struct {
	Statement string
}

func (rc RawCypher) validate() error {
	if sideEffectExpr.MatchString(rc.Statement) {
		return fmt.Errorf("raw expression must not include any action with a side effect")
	}
	return nil
}

func (rc RawCypher) render(context map[string]string) string {
	out := rc.Statement
	for key, val := range context {
		out = strings.ReplaceAll(out, "$"+key, val)
	}
	return out
}

// Function is an annotation expression rendered into the RETURN clause.
type Function interface {
	render(b *Builder) (string, error)
	internalName() string
}

type baseFunction struct {
	// input is an identifier string, a resolver, or a nested Function.
	input        any
	resolvedName string
}

func (f *baseFunction) internalName() string { return f.resolvedName }

func (f *baseFunction) resolveInput(b *Builder) (string, error) {
	switch t := f.input.(type) {
	case string:
		f.resolvedName = t
		return t, nil
	case NodeNameResolver:
		name, err := t.resolve(b)
		f.resolvedName = name
		return name, err
	case RelationNameResolver:
		name, err := t.resolve(b)
		f.resolvedName = name
		return name, err
	case Function:
		content, err := t.render(b)
		f.resolvedName = t.internalName()
		return content, err
	default:
		return "", fmt.Errorf("unsupported function input: %T", f.input)
	}
}

// CollectFn renders collect(), optionally DISTINCT.
type CollectFn struct {
	baseFunction
	distinct bool
}

// Collect aggregates an identifier into a list.
func Collect(input any, distinct bool) *CollectFn {
	return &CollectFn{baseFunction: baseFunction{input: input}, distinct: distinct}
}

func (f *CollectFn) render(b *Builder) (string, error) {
	name, err := f.resolveInput(b)
	if err != nil {
		return "", err
	}
	if f.distinct {
		return fmt.Sprintf("collect(DISTINCT %s)", name), nil
	}
	return fmt.Sprintf("collect(%s)", name), nil
}

type scalarFn struct {
	baseFunction
	name string
}

func (f *scalarFn) render(b *Builder) (string, error) {
	content, err := f.resolveInput(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", f.name, content), nil
}

// Last renders last() over its input.
func Last(input any) Function {
	return &scalarFn{baseFunction: baseFunction{input: input}, name: "last"}
}

// Size renders size() over its input.
func Size(input any) Function {
	return &scalarFn{baseFunction: baseFunction{input: input}, name: "size"}
}
