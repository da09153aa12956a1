package cypher

import (
	"fmt"
	"strings"

	"github.com/orneryd/nornogm/pkg/db"
	"github.com/orneryd/nornogm/pkg/model"
)

// Builder turns one node set's accumulated state into a query string and
// parameter map. It is a single-use value: construct, build, serialize,
// discard. The identifier and placeholder counters are local to one
// build and never shared across builds.
type Builder struct {
	ns       *NodeSet
	ast      *queryAST
	params   map[string]any
	identity db.IdentityFunc

	placeholders map[string]int
	relCount     int
	nodeCount    int

	// namespace prefixes placeholder names when this builder compiles a
	// subquery, keeping inner parameters out of the outer query's space.
	namespace string
}

// NewBuilder prepares a builder for the given node set.
func NewBuilder(ns *NodeSet) *Builder { return newBuilder(ns, "") }

func newBuilder(ns *NodeSet, namespace string) *Builder {
	identity := db.FuncElementID
	if ns.runner != nil && ns.runner.Exec != nil {
		identity = ns.runner.Exec.Identity()
	}
	return &Builder{
		ns:           ns,
		ast:          newQueryAST(),
		params:       map[string]any{},
		identity:     identity,
		placeholders: map[string]int{},
		namespace:    namespace,
	}
}

// Params returns the parameter map accumulated during the build.
func (b *Builder) Params() map[string]any { return b.params }

func lowerIdent(label string) string { return strings.ToLower(label) }

func (b *Builder) createRelIdent() string {
	b.relCount++
	return fmt.Sprintf("r%d", b.relCount)
}

func (b *Builder) createNodeIdent(prefix string) string {
	b.nodeCount++
	return fmt.Sprintf("%s%d", prefix, b.nodeCount)
}

func (b *Builder) registerPlaceholder(key string) string {
	b.placeholders[key]++
	name := fmt.Sprintf("%s_%d", key, b.placeholders[key])
	if b.namespace != "" {
		name = b.namespace + "_" + name
	}
	return name
}

func (b *Builder) registry() *model.Registry {
	if b.ns.runner != nil {
		return b.ns.runner.Registry
	}
	return nil
}

// Build runs the full pipeline: AST assembly then serialization.
func (b *Builder) Build() (string, map[string]any, error) {
	if err := b.buildAST(); err != nil {
		return "", nil, err
	}
	query, err := b.buildQuery()
	if err != nil {
		return "", nil, err
	}
	return query, b.params, nil
}

// buildAST populates the AST in dependency order: the vector preamble
// first since it establishes the primary identifier, then registered
// traversal paths, then the source with its filters and ordering, then
// pagination.
func (b *Builder) buildAST() error {
	if b.ns.err != nil {
		return b.ns.err
	}
	if b.ns.vector != nil {
		if err := b.buildVectorQuery(b.ns.vector, b.ns.class); err != nil {
			return err
		}
	}
	for _, rel := range b.ns.relationsToFetch {
		if _, _, err := b.buildTraversalFromPath(rel, b.ns.class); err != nil {
			return err
		}
	}
	if _, err := b.buildNodeSet(b.ns); err != nil {
		return err
	}
	if b.ns.hasSkip {
		b.ast.skip, b.ast.hasSkip = b.ns.skip, true
	}
	if b.ns.hasLimit {
		b.ast.limit, b.ast.hasLimit = b.ns.limit, true
	}
	return nil
}

func (b *Builder) buildSource(src source) (string, error) {
	switch src.kind {
	case sourceTraversal:
		return b.buildTraversal(src.traversal)
	case sourceNodeSet:
		return b.buildNodeSet(src.nodeSet)
	case sourceInstance:
		return b.buildNode(src.node)
	default:
		return b.buildLabel(lowerIdent(src.class.Label()), src.class), nil
	}
}

func (b *Builder) buildNodeSet(ns *NodeSet) (string, error) {
	if ns.err != nil {
		return "", ns.err
	}
	ident, err := b.buildSource(ns.source)
	if err != nil {
		return "", err
	}
	if err := b.buildAdditionalMatch(ident, ns); err != nil {
		return "", err
	}
	if len(ns.orderTerms) > 0 || ns.randomOrder {
		if err := b.buildOrderBy(ident, ns); err != nil {
			return "", err
		}
	}
	if !ns.qFilters.Empty() {
		if err := b.buildWhereStmt(ident, ns.qFilters, ns.class); err != nil {
			return "", err
		}
	}
	return ident, nil
}

// buildLabel matches the root label; the pattern is only emitted when no
// traversal step already established the return clause, or when every
// registered traversal was optional and the root still needs a required
// match of its own.
func (b *Builder) buildLabel(ident string, class *model.Class) string {
	if b.ast.returnClause == "" {
		present := false
		for _, name := range b.ast.additionalReturn {
			if name == ident {
				present = true
				break
			}
		}
		if !present {
			b.ast.match = append(b.ast.match, nodeIdent(ident, class.Label()).render())
			b.ast.returnClause = ident
			b.ast.resultClass = class
		}
	} else if len(b.ast.match) == 0 && b.ast.vector == nil {
		b.ast.match = append(b.ast.match, nodeIdent(ident, class.Label()).render())
		b.ast.resultClass = class
	}
	return ident
}

// buildNode pins the query to one saved node: a lookup preamble matching
// by stored identity, chained through WITH so later clauses apply.
func (b *Builder) buildNode(node *model.Node) (string, error) {
	if !node.Saved() {
		return "", fmt.Errorf("cannot query an unsaved node")
	}
	ident := lowerIdent(node.Class().Label())
	placeholder := b.registerPlaceholder(ident)

	b.ast.lookup = fmt.Sprintf("MATCH (%s) WHERE %s(%s)=$%s WITH %s",
		ident, b.identity, ident, placeholder, ident)
	b.params[placeholder] = b.identity.ParseElementID(node.ElementID())
	b.ast.returnClause = ident
	b.ast.resultClass = node.Class()
	return ident, nil
}

// buildTraversal matches one relationship hop from the traversal's
// source and makes the far end the primary return identifier.
func (b *Builder) buildTraversal(t *Traversal) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	relIdent := b.createRelIdent()
	lhsIdent, err := b.buildSource(t.source)
	if err != nil {
		return "", err
	}
	traversalIdent := fmt.Sprintf("%s_%s", t.name, relIdent)
	b.ast.returnClause = traversalIdent
	b.ast.resultClass = t.target

	stmt := relPattern{
		lhs:       nodeIdent(lhsIdent, ""),
		rhs:       nodeIdent(traversalIdent, t.target.Label()),
		ident:     relIdent,
		relType:   t.def.Type,
		direction: t.def.Direction,
	}
	b.ast.match = append(b.ast.match, stmt.render())

	if len(t.filters) > 0 {
		if err := b.buildWhereStmt(relIdent, And(t.filters...), t.def.Model); err != nil {
			return "", err
		}
	}
	return traversalIdent, nil
}

// buildTraversalFromPath walks a dotted path hop by hop, allocating a
// fresh relationship identifier per hop and reusing node identifiers for
// hops visited earlier in the same build, so a path contributes exactly
// one pattern no matter how many callers reference it.
func (b *Builder) buildTraversalFromPath(rel Path, class *model.Class) (string, *model.Class, error) {
	parts := splitPathKey(rel.Value)
	current := class
	subgraph := b.ast.subgraph

	stmt := ""
	relIterator := ""
	alreadyPresent := false
	existingRhs := ""
	rhsName := ""
	var target *model.Class

	for index, part := range parts {
		def, ok := current.Relationship(part)
		if !ok {
			return "", nil, &model.NoSuchRelationshipError{Class: current, Name: part}
		}
		var err error
		target, err = def.Target(b.registry())
		if err != nil {
			return "", nil, err
		}
		if relIterator != "" {
			relIterator += "__"
		}
		relIterator += part

		var lhs nodeExpr
		if stmt == "" {
			lhsLabel := current.Label()
			lhsName := lowerIdent(lhsLabel)
			lhs = nodeIdent(lhsName, lhsLabel)
			if index == 0 {
				// The primary node stays in the return clause so
				// containment checks keep working.
				b.ast.returnClause = lhsName
				if b.namespace != "" {
					// No label inside a subquery, it must not leak into
					// the outer scope.
					lhs = nodeIdent(lhsName, "")
				}
			} else if rel.IncludeInReturn {
				b.ast.addAdditionalReturn(lhsName)
			}
		} else {
			lhs = chained(stmt)
		}

		alreadyPresent = subgraph[part] != nil
		relIdent := b.createRelIdent()
		rhsLabel := target.Label()
		switch {
		case rel.relFiltering:
			rhsName = relIdent
		case index+1 == len(parts) && rel.Alias != "":
			rhsName = rel.Alias
		default:
			rhsName = b.createNodeIdent(lowerIdent(rhsLabel) + "_" + relIterator)
		}

		if rel.IncludeInReturn && !alreadyPresent {
			b.ast.addAdditionalReturn(rhsName)
		}
		if !alreadyPresent {
			subgraph[part] = &subgraphNode{
				target:       target,
				children:     map[string]*subgraphNode{},
				variableName: rhsName,
				relVariable:  relIdent,
			}
		} else if rel.relFiltering {
			existingRhs = subgraph[part].relVariable
		} else {
			existingRhs = subgraph[part].variableName
		}
		if rel.IncludeInReturn && !alreadyPresent {
			b.ast.addAdditionalReturn(relIdent)
		}

		stmt = relPattern{
			lhs:       lhs,
			rhs:       nodeIdent(rhsName, rhsLabel),
			ident:     relIdent,
			relType:   def.Type,
			direction: def.Direction,
		}.render()
		current = target
		subgraph = subgraph[part].children
	}

	if !alreadyPresent {
		if rel.Optional {
			b.ast.optionalMatch = append(b.ast.optionalMatch, stmt)
		} else {
			b.ast.match = append(b.ast.match, stmt)
		}
		return rhsName, target, nil
	}
	return existingRhs, target, nil
}

// buildAdditionalMatch appends EXISTS / NOT EXISTS predicates for has()
// constraints.
func (b *Builder) buildAdditionalMatch(ident string, ns *NodeSet) error {
	render := func(entry hasEntry) (string, error) {
		target, err := entry.def.Target(b.registry())
		if err != nil {
			return "", err
		}
		pattern := relPattern{
			lhs:       nodeIdent(ident, ""),
			rhs:       nodeIdent("", target.Label()),
			relType:   entry.def.Type,
			direction: entry.def.Direction,
		}
		return pattern.render(), nil
	}
	for _, entry := range ns.mustMatch {
		pattern, err := render(entry)
		if err != nil {
			return err
		}
		b.ast.where = append(b.ast.where, fmt.Sprintf("EXISTS (%s)", pattern))
	}
	for _, entry := range ns.dontMatch {
		pattern, err := render(entry)
		if err != nil {
			return err
		}
		b.ast.where = append(b.ast.where, fmt.Sprintf("NOT EXISTS (%s)", pattern))
	}
	return nil
}

func (b *Builder) buildOrderBy(ident string, ns *NodeSet) error {
	if ns.randomOrder {
		b.ast.withClause = fmt.Sprintf("%s, rand() as r", ident)
		b.ast.orderBy = []string{"r"}
		return nil
	}
	var orderBy []string
	for _, term := range ns.orderTerms {
		if term.raw != nil {
			orderBy = append(orderBy, term.raw.render(map[string]string{"n": ident}))
			continue
		}
		expr := term.expr
		isRelProperty := strings.Contains(expr, "|")
		if !strings.Contains(expr, "__") && !isRelProperty {
			orderBy = append(orderBy, fmt.Sprintf("%s.%s", ident, expr))
			continue
		}
		sep := "__"
		if isRelProperty {
			sep = "|"
		}
		idx := strings.LastIndex(expr, sep)
		path, prop := expr[:idx], expr[idx+len(sep):]
		variable, _, _, found := b.lookupQueryVariable(path, isRelProperty)
		if found {
			orderBy = append(orderBy, fmt.Sprintf("%s.%s", variable, prop))
		}
	}
	b.ast.orderBy = orderBy
	return nil
}

// buildWhereStmt translates a filter tree and appends the resulting
// fragments to the required or optional where lists, split by whether
// the referenced identifiers come from MATCH or OPTIONAL MATCH.
func (b *Builder) buildWhereStmt(ident string, q *Q, class *model.Class) error {
	if q.Empty() {
		return nil
	}
	if q.isLeaf() {
		q = &Q{connector: ConnectorAnd, negated: q.negated, children: []*Q{{leafKey: q.leafKey, leafValue: q.leafValue}}}
	}
	stmt, optStmt, err := b.parseQFilters(ident, q, class)
	if err != nil {
		return err
	}
	if stmt != "" {
		b.ast.where = append(b.ast.where, stmt)
	}
	if optStmt != "" {
		b.ast.optionalWhere = append(b.ast.optionalWhere, optStmt)
	}
	return nil
}

func (b *Builder) parseQFilters(ident string, q *Q, class *model.Class) (string, string, error) {
	type entry struct {
		stmt     string
		optional bool
	}
	var target []entry
	add := func(stmt string, conn Connector, optional bool) {
		if stmt == "" {
			return
		}
		if conn == ConnectorOr {
			stmt = "(" + stmt + ")"
		}
		target = append(target, entry{stmt, optional})
	}

	for _, child := range q.walkChildren() {
		if child.isLeaf() {
			stmt, optional, err := b.buildLeafStatement(ident, class, child.leafKey, child.leafValue)
			if err != nil {
				return "", "", err
			}
			if child.negated {
				stmt = fmt.Sprintf("NOT (%s)", stmt)
			}
			target = append(target, entry{stmt, optional})
			continue
		}
		childStmt, childOpt, err := b.parseQFilters(ident, child, class)
		if err != nil {
			return "", "", err
		}
		add(childStmt, child.effectiveConnector(), false)
		add(childOpt, child.effectiveConnector(), true)
	}

	var matchFilters, optFilters []string
	for _, e := range target {
		if e.optional {
			optFilters = append(optFilters, e.stmt)
		} else {
			matchFilters = append(matchFilters, e.stmt)
		}
	}
	conn := string(q.effectiveConnector())
	if q.effectiveConnector() == ConnectorOr && len(matchFilters) > 0 && len(optFilters) > 0 {
		// An OR across MATCH and OPTIONAL MATCH variables cannot be split
		// into two WHERE clauses, so the whole expression moves into the
		// one applied after the OPTIONAL MATCH statements.
		optFilters = append(optFilters, matchFilters...)
		matchFilters = nil
		b.ast.mixedFilters = true
	}

	ret := strings.Join(matchFilters, " "+conn+" ")
	if ret != "" && q.negated {
		ret = fmt.Sprintf("NOT (%s)", ret)
	}
	optRet := strings.Join(optFilters, " "+conn+" ")
	if optRet != "" && q.negated {
		optRet = fmt.Sprintf("NOT (%s)", optRet)
	}
	return ret, optRet, nil
}

// buildLeafStatement translates one leaf filter, resolving its traversal
// path to an identifier (registering the path if this is its first use)
// and binding the deflated value to a fresh placeholder.
func (b *Builder) buildLeafStatement(rootIdent string, class *model.Class, key string, value any) (string, bool, error) {
	cond, err := translateFilter(b.registry(), class, key, value)
	if err != nil {
		return "", false, err
	}

	ident := rootIdent
	optional := false
	if cond.path != "" {
		variable, _, opt, found := b.lookupQueryVariable(cond.path, cond.relProp)
		if found {
			ident = variable
			optional = opt
		} else {
			ident, _, err = b.buildTraversalFromPath(Path{
				Value:           cond.path,
				IncludeInReturn: true,
				relFiltering:    cond.relProp,
			}, class)
			if err != nil {
				return "", false, err
			}
		}
	}

	switch cond.operator {
	case operatorIsNull, operatorIsNotNull:
		return fmt.Sprintf("%s.%s %s", ident, cond.prop, cond.operator), optional, nil
	}
	placeholder := b.registerPlaceholder(ident + "_" + cond.prop)
	b.params[placeholder] = cond.value
	if cond.arrayIn {
		return fmt.Sprintf("any(x IN %s.%s WHERE x IN $%s)", ident, cond.prop, placeholder), optional, nil
	}
	return fmt.Sprintf("%s.%s %s $%s", ident, cond.prop, cond.operator, placeholder), optional, nil
}

// lookupQueryVariable retrieves the identifier allocated for a dotted
// traversal path earlier in this build, along with its target class and
// whether the pattern was registered optionally.
func (b *Builder) lookupQueryVariable(path string, returnRelation bool) (string, *model.Class, bool, bool) {
	if len(b.ast.subgraph) == 0 {
		return "", nil, false, false
	}
	traversals := splitPathKey(path)
	node, ok := b.ast.subgraph[traversals[0]]
	if !ok {
		return "", nil, false, false
	}

	optional := false
	for _, rel := range b.ns.relationsToFetch {
		if rel.Value == path {
			optional = rel.Optional
			break
		}
	}

	pick := func(n *subgraphNode) string {
		if returnRelation {
			return n.relVariable
		}
		return n.variableName
	}
	if len(traversals) == 1 {
		return pick(node), node.target, optional, true
	}
	variable := ""
	last := traversals[len(traversals)-1]
	for _, part := range traversals[1:] {
		child, ok := node.children[part]
		if !ok {
			return "", nil, false, false
		}
		node = child
		if part == last {
			variable = pick(node)
		}
	}
	return variable, node.target, optional, true
}

// returnsVariable reports whether the built query exposes the given name
// in its return set, used for subquery contract validation.
func (b *Builder) returnsVariable(name string) bool {
	if name == b.ast.returnClause {
		return true
	}
	for _, item := range b.ast.additionalReturn {
		if item == name {
			return true
		}
	}
	for _, extra := range b.ns.extraResults {
		if extra.alias == name {
			return true
		}
	}
	for _, transform := range b.ns.transforms {
		for _, v := range transform.Vars {
			if v.Var.IncludeInReturn && v.Name == name {
				return true
			}
		}
	}
	return false
}

// buildQuery serializes the AST. One MATCH keyword is emitted per
// pattern rather than comma-joining them, which sidesteps cartesian
// product semantics between unrelated patterns.
func (b *Builder) buildQuery() (string, error) {
	var sb strings.Builder

	if b.ast.lookup != "" {
		sb.WriteString(b.ast.lookup)
	}
	if b.ast.vector != nil {
		sb.WriteString(b.ast.vector.render())
	}

	if len(b.ast.match) > 0 {
		sb.WriteString(" MATCH ")
		sb.WriteString(strings.Join(b.ast.match, " MATCH "))
	}
	if len(b.ast.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.ast.where, " AND "))
	}
	if len(b.ast.optionalMatch) > 0 {
		sb.WriteString(" OPTIONAL MATCH ")
		sb.WriteString(strings.Join(b.ast.optionalMatch, " OPTIONAL MATCH "))
	}
	if len(b.ast.optionalWhere) > 0 {
		if b.ast.mixedFilters {
			// Folded filters reference required-match variables too, so
			// everything bound so far must stay in scope.
			sb.WriteString(" WITH *")
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.ast.optionalWhere, " AND "))
	}
	if b.ast.withClause != "" {
		sb.WriteString(" WITH ")
		sb.WriteString(b.ast.withClause)
	}

	var returnedItems []string
	for _, transform := range b.ns.transforms {
		sb.WriteString(" WITH ")
		if transform.Distinct {
			sb.WriteString("DISTINCT ")
		}
		// Each projection discards and rebuilds the active return set.
		b.ast.returnClause = ""
		b.ast.additionalReturn = nil
		var injected []string
		for _, v := range transform.Vars {
			expr, err := b.resolveTransformSource(v.Var.Source)
			if err != nil {
				return "", err
			}
			if v.Var.SourceProp != "" {
				expr += "." + v.Var.SourceProp
			}
			expr += " AS " + v.Name
			if v.Var.IncludeInReturn {
				returnedItems = append(returnedItems, v.Name)
			}
			injected = append(injected, expr)
		}
		sb.WriteString(strings.Join(injected, ","))
		if len(transform.Ordering) == 0 {
			continue
		}
		sb.WriteString(" ORDER BY ")
		var ordering []string
		for _, item := range transform.Ordering {
			switch t := item.(type) {
			case RawCypher:
				ordering = append(ordering, t.render(nil))
			case string:
				if strings.HasPrefix(t, "-") {
					ordering = append(ordering, t[1:]+" DESC")
				} else {
					ordering = append(ordering, t)
				}
			default:
				return "", fmt.Errorf("unsupported transform ordering term: %T", item)
			}
		}
		sb.WriteString(strings.Join(ordering, ","))
	}

	for _, sq := range b.ns.subqueries {
		sb.WriteString(" CALL {")
		if len(sq.initialContext) > 0 {
			sb.WriteString(" WITH ")
			var context []string
			for _, entry := range sq.initialContext {
				switch t := entry.(type) {
				case string:
					context = append(context, t)
				case NodeNameResolver:
					name, err := t.resolve(b)
					if err != nil {
						return "", err
					}
					context = append(context, name)
				case RelationNameResolver:
					name, err := t.resolve(b)
					if err != nil {
						return "", err
					}
					context = append(context, name)
				case RawCypher:
					context = append(context, t.render(nil))
				}
			}
			sb.WriteString(strings.Join(context, ","))
		}
		sb.WriteString(sq.query)
		sb.WriteString(" } ")
		for k, v := range sq.params {
			b.params[k] = v
		}
		for _, name := range sq.returnSet {
			// Returned subquery variables register as virtual relations of
			// the root so subgraph resolution picks them up.
			b.ast.subgraph[name] = &subgraphNode{
				children:     map[string]*subgraphNode{},
				variableName: name,
				relVariable:  name,
			}
		}
		returnedItems = append(returnedItems, sq.returnSet...)
	}

	sb.WriteString(" RETURN ")
	if b.ast.returnClause != "" && b.namespace == "" {
		returnedItems = append(returnedItems, b.ast.returnClause)
	}
	returnedItems = append(returnedItems, b.ast.additionalReturn...)
	for _, extra := range b.ns.extraResults {
		expr, err := extra.fn.render(b)
		if err != nil {
			return "", err
		}
		name := extra.alias
		if name == "" {
			name = extra.fn.internalName()
		}
		for i, item := range returnedItems {
			if item == name {
				returnedItems = append(returnedItems[:i], returnedItems[i+1:]...)
				break
			}
		}
		returnedItems = append(returnedItems, fmt.Sprintf("%s AS %s", expr, name))
	}
	if len(returnedItems) == 0 {
		return "", fmt.Errorf("cannot build a query with an empty return clause")
	}
	sb.WriteString(strings.Join(returnedItems, ", "))

	if len(b.ast.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.ast.orderBy, ", "))
	}
	// With a count aggregation, pagination already moved into the WITH
	// clause preceding the aggregate.
	if b.ast.hasSkip && !b.ast.isCount {
		fmt.Fprintf(&sb, " SKIP %d", b.ast.skip)
	}
	if b.ast.hasLimit && !b.ast.isCount {
		fmt.Fprintf(&sb, " LIMIT %d", b.ast.limit)
	}

	return sb.String(), nil
}

func (b *Builder) resolveTransformSource(src any) (string, error) {
	switch t := src.(type) {
	case string:
		return t, nil
	case NodeNameResolver:
		return t.resolve(b)
	case RelationNameResolver:
		return t.resolve(b)
	case RawCypher:
		return t.render(nil), nil
	default:
		return "", fmt.Errorf("unsupported transform source: %T", src)
	}
}

// countQuery re-targets the AST into a count aggregation. Pagination
// moves into a WITH before the aggregate so it applies to the candidate
// set, not to the count itself; ordering and additional returns are
// dropped since both are invalid alongside a scalar aggregate.
func (b *Builder) countQuery() (string, error) {
	if b.ast.returnClause == "" {
		return "", fmt.Errorf("cannot count without a return clause")
	}
	b.ast.isCount = true
	with := b.ast.returnClause
	if b.ast.hasSkip {
		with += fmt.Sprintf(" SKIP %d", b.ast.skip)
	}
	if b.ast.hasLimit {
		with += fmt.Sprintf(" LIMIT %d", b.ast.limit)
	}
	b.ast.withClause = with
	b.ast.returnClause = fmt.Sprintf("count(%s)", b.ast.returnClause)
	b.ast.orderBy = nil
	b.ast.additionalReturn = nil
	return b.buildQuery()
}

// containsQuery injects an identity-equality predicate on the primary
// return identifier and delegates to the count path.
func (b *Builder) containsQuery(elementID string) (string, error) {
	if b.ast.returnClause == "" && len(b.ast.additionalReturn) > 0 {
		b.ast.returnClause = b.ast.additionalReturn[0]
	}
	if b.ast.returnClause == "" {
		return "", fmt.Errorf("cannot use contains without a return clause")
	}
	ident := b.ast.returnClause
	placeholder := b.registerPlaceholder(ident + "_contains")
	b.ast.where = append(b.ast.where, fmt.Sprintf("%s(%s) = $%s", b.identity, ident, placeholder))
	b.params[placeholder] = b.identity.ParseElementID(elementID)
	return b.countQuery()
}
