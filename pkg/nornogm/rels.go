package nornogm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/orneryd/nornogm/pkg/cypher"
	"github.com/orneryd/nornogm/pkg/db"
	"github.com/orneryd/nornogm/pkg/model"
)

// Manager operates one declared relationship of one saved node: connect,
// disconnect, reconnect, relationship fetch and traversal into a NodeSet.
// The relationship's declared cardinality is enforced on every mutating
// call.
type Manager struct {
	db   *DB
	node *model.Node
	def  *model.RelationshipDef
}

// Manager returns the relationship manager for a declared traversal of
// the node's class.
func (d *DB) Manager(node *model.Node, relName string) (*Manager, error) {
	def, ok := node.Class().Relationship(relName)
	if !ok {
		return nil, &model.NoSuchRelationshipError{Class: node.Class(), Name: relName}
	}
	return &Manager{db: d, node: node, def: def}, nil
}

// Definition returns the declared relationship this manager operates.
func (m *Manager) Definition() *model.RelationshipDef { return m.def }

// NodeSet starts a query over the nodes reachable through this
// relationship.
func (m *Manager) NodeSet() *cypher.NodeSet {
	return cypher.NodeTraversal(m.db.runner, m.node, m.def.Name).NodeSet()
}

// All resolves every related node.
func (m *Manager) All(ctx context.Context) ([]any, error) {
	return m.NodeSet().All(ctx)
}

// Count counts the related nodes.
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.NodeSet().Count(ctx)
}

// Single resolves the related node under the declared cardinality: nil
// for an empty ZeroOrOne/ZeroOrMore, an error for an empty One/OneOrMore,
// and an error when One/ZeroOrOne find more than one.
func (m *Manager) Single(ctx context.Context) (*model.Node, error) {
	if err := checkAction(m.node, "single"); err != nil {
		return nil, err
	}
	results, err := m.NodeSet().Limit(2).All(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case len(results) == 0:
		if m.def.Cardinality == model.One || m.def.Cardinality == model.OneOrMore {
			return nil, &model.CardinalityViolationError{Def: m.def, Count: 0}
		}
		return nil, nil
	case len(results) > 1:
		if m.def.Cardinality == model.One || m.def.Cardinality == model.ZeroOrOne {
			return nil, &model.CardinalityViolationError{Def: m.def, Count: len(results)}
		}
	}
	node, ok := results[0].(*model.Node)
	if !ok {
		return nil, fmt.Errorf("single %q: expected a node, got %T", m.def.Name, results[0])
	}
	return node, nil
}

// IsConnected reports whether a relationship of the managed type exists
// between the source and the given node.
func (m *Manager) IsConnected(ctx context.Context, other *model.Node) (bool, error) {
	rel, err := m.Relationship(ctx, other)
	if err != nil {
		return false, err
	}
	return rel != nil, nil
}

// Connect merges a relationship to the given node. When the relationship
// declares a model, properties are deflated through it and the created
// relationship is returned; without a model, properties are rejected and
// the result is nil.
func (m *Manager) Connect(ctx context.Context, other *model.Node, props map[string]any) (*model.Relationship, error) {
	if err := checkAction(m.node, "connect"); err != nil {
		return nil, err
	}
	if err := checkAction(other, "connect"); err != nil {
		return nil, err
	}
	if err := m.checkTarget(other); err != nil {
		return nil, err
	}
	if m.def.Cardinality == model.One || m.def.Cardinality == model.ZeroOrOne {
		count, err := m.Count(ctx)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, &model.CardinalityViolationError{Def: m.def, Count: count}
		}
	}
	if m.def.Model == nil && len(props) > 0 {
		return nil, fmt.Errorf("connect %q: relationship properties require a relationship model", m.def.Name)
	}

	params := map[string]any{}
	relProps := ""
	var nilKeys []string
	if m.def.Model != nil {
		if props == nil {
			props = map[string]any{}
		}
		deflated, err := m.def.Model.Deflate(props)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(deflated))
		for k := range deflated {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var inline []string
		for _, k := range keys {
			v := deflated[k]
			params[k] = v
			if v == nil {
				nilKeys = append(nilKeys, k)
				continue
			}
			inline = append(inline, fmt.Sprintf("%s: $%s", k, k))
		}
		if len(inline) > 0 {
			relProps = " {" + strings.Join(inline, ", ") + "}"
		}
	}

	pattern := relPattern("us", "them", relDef("r", m.def.Type, relProps), m.def.Direction)
	if len(nilKeys) > 0 {
		assignments := make([]string, len(nilKeys))
		for i, k := range nilKeys {
			assignments[i] = fmt.Sprintf("r.%s=$%s", k, k)
		}
		set := strings.Join(assignments, ", ")
		pattern += " ON CREATE SET " + set + " ON MATCH SET " + set
	}

	idFn := string(m.db.identity())
	q := fmt.Sprintf("MATCH (them), (us) WHERE %s(them)=$them and %s(us)=$self MERGE %s",
		idFn, idFn, pattern)
	params["them"] = m.db.selfParam(other)
	params["self"] = m.db.selfParam(m.node)

	if m.def.Model == nil {
		_, err := m.db.exec.Execute(ctx, q, params)
		return nil, err
	}
	res, err := m.db.exec.Execute(ctx, q+" RETURN r", params)
	if err != nil {
		return nil, err
	}
	rels, err := m.inflateRelRows(res)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, fmt.Errorf("connect %q: server returned no relationship", m.def.Name)
	}
	return rels[0], nil
}

// Relationship fetches the first relationship of the managed type between
// the source and the given node, nil when none exists.
func (m *Manager) Relationship(ctx context.Context, other *model.Node) (*model.Relationship, error) {
	if err := checkAction(m.node, "relationship"); err != nil {
		return nil, err
	}
	if err := checkAction(other, "relationship"); err != nil {
		return nil, err
	}
	res, err := m.fetchRels(ctx, other, " LIMIT 1")
	if err != nil {
		return nil, err
	}
	rels, err := m.inflateRelRows(res)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, nil
	}
	return rels[0], nil
}

// AllRelationships fetches every relationship of the managed type between
// the source and the given node.
func (m *Manager) AllRelationships(ctx context.Context, other *model.Node) ([]*model.Relationship, error) {
	if err := checkAction(m.node, "all relationships"); err != nil {
		return nil, err
	}
	if err := checkAction(other, "all relationships"); err != nil {
		return nil, err
	}
	res, err := m.fetchRels(ctx, other, "")
	if err != nil {
		return nil, err
	}
	return m.inflateRelRows(res)
}

func (m *Manager) fetchRels(ctx context.Context, other *model.Node, suffix string) (*db.Result, error) {
	idFn := string(m.db.identity())
	pattern := relPattern("us", "them", relDef("r", m.def.Type, ""), m.def.Direction)
	q := fmt.Sprintf("MATCH %s WHERE %s(them)=$them and %s(us)=$self RETURN r%s",
		pattern, idFn, idFn, suffix)
	return m.db.exec.Execute(ctx, q, map[string]any{
		"them": m.db.selfParam(other),
		"self": m.db.selfParam(m.node),
	})
}

// Reconnect moves the relationship from one node to another, carrying
// every property of the old relationship over to the new one.
func (m *Manager) Reconnect(ctx context.Context, oldNode, newNode *model.Node) error {
	if err := checkAction(m.node, "reconnect"); err != nil {
		return err
	}
	if err := checkAction(oldNode, "reconnect"); err != nil {
		return err
	}
	if err := checkAction(newNode, "reconnect"); err != nil {
		return err
	}
	if oldNode.ElementID() == newNode.ElementID() {
		return nil
	}

	idFn := string(m.db.identity())
	oldRel := relPattern("us", "old", relDef("r", m.def.Type, ""), m.def.Direction)

	fetch := fmt.Sprintf("MATCH (us), (old) WHERE %s(us)=$self and %s(old)=$old MATCH %s RETURN r",
		idFn, idFn, oldRel)
	res, err := m.db.exec.Execute(ctx, fetch, map[string]any{
		"self": m.db.selfParam(m.node),
		"old":  m.db.selfParam(oldNode),
	})
	if err != nil {
		return err
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return fmt.Errorf("reconnect %q: %w", m.def.Name, ErrNotConnected)
	}
	raw, ok := res.Rows[0][0].(db.Relationship)
	if !ok {
		return fmt.Errorf("reconnect %q: expected a relationship, got %T", m.def.Name, res.Rows[0][0])
	}
	propKeys := make([]string, 0, len(raw.Props))
	for k := range raw.Props {
		propKeys = append(propKeys, k)
	}
	sort.Strings(propKeys)

	newRel := relPattern("us", "new", relDef("r2", m.def.Type, ""), m.def.Direction)
	var q strings.Builder
	fmt.Fprintf(&q, "MATCH (us), (old), (new) WHERE %s(us)=$self and %s(old)=$old and %s(new)=$new MATCH %s MERGE %s",
		idFn, idFn, idFn, oldRel, newRel)
	for _, k := range propKeys {
		fmt.Fprintf(&q, " SET r2.%s = r.%s", k, k)
	}
	q.WriteString(" WITH r DELETE r")

	_, err = m.db.exec.Execute(ctx, q.String(), map[string]any{
		"self": m.db.selfParam(m.node),
		"old":  m.db.selfParam(oldNode),
		"new":  m.db.selfParam(newNode),
	})
	return err
}

// Disconnect deletes the relationships of the managed type between the
// source and the given node.
func (m *Manager) Disconnect(ctx context.Context, other *model.Node) error {
	if err := checkAction(m.node, "disconnect"); err != nil {
		return err
	}
	if err := checkAction(other, "disconnect"); err != nil {
		return err
	}
	switch m.def.Cardinality {
	case model.One:
		return &model.CardinalityViolationError{Def: m.def, Count: 1}
	case model.OneOrMore:
		count, err := m.Count(ctx)
		if err != nil {
			return err
		}
		if count < 2 {
			return &model.CardinalityViolationError{Def: m.def, Count: count}
		}
	}
	idFn := string(m.db.identity())
	pattern := relPattern("a", "b", relDef("r", m.def.Type, ""), m.def.Direction)
	q := fmt.Sprintf("MATCH (a), (b) WHERE %s(a)=$self and %s(b)=$them MATCH %s DELETE r",
		idFn, idFn, pattern)
	_, err := m.db.exec.Execute(ctx, q, map[string]any{
		"self": m.db.selfParam(m.node),
		"them": m.db.selfParam(other),
	})
	return err
}

// DisconnectAll deletes every relationship of the managed type from the
// source node. Rejected for One and OneOrMore cardinalities.
func (m *Manager) DisconnectAll(ctx context.Context) error {
	if err := checkAction(m.node, "disconnect all"); err != nil {
		return err
	}
	if m.def.Cardinality == model.One || m.def.Cardinality == model.OneOrMore {
		return &model.CardinalityViolationError{Def: m.def, Count: 0}
	}
	target, err := m.def.Target(m.db.registry)
	if err != nil {
		return err
	}
	idFn := string(m.db.identity())
	pattern := relPattern("a", "b:"+target.Label(), relDef("r", m.def.Type, ""), m.def.Direction)
	q := fmt.Sprintf("MATCH (a) WHERE %s(a)=$self MATCH %s DELETE r", idFn, pattern)
	_, err = m.db.exec.Execute(ctx, q, map[string]any{"self": m.db.selfParam(m.node)})
	return err
}

// Replace disconnects every related node, then connects the given one.
func (m *Manager) Replace(ctx context.Context, other *model.Node, props map[string]any) (*model.Relationship, error) {
	if err := m.DisconnectAll(ctx); err != nil {
		return nil, err
	}
	return m.Connect(ctx, other, props)
}

// GetOrCreate merges target nodes like DB.GetOrCreate, additionally
// creating the managed relationship from the source to each merged node.
func (m *Manager) GetOrCreate(ctx context.Context, props ...map[string]any) ([]*model.Node, error) {
	target, err := m.def.Target(m.db.registry)
	if err != nil {
		return nil, err
	}
	return m.db.mergeNodes(ctx, target, props, false, m)
}

// CreateOrUpdate merges target nodes like DB.CreateOrUpdate through the
// managed relationship.
func (m *Manager) CreateOrUpdate(ctx context.Context, props ...map[string]any) ([]*model.Node, error) {
	target, err := m.def.Target(m.db.registry)
	if err != nil {
		return nil, err
	}
	return m.db.mergeNodes(ctx, target, props, true, m)
}

func (m *Manager) checkTarget(other *model.Node) error {
	target, err := m.def.Target(m.db.registry)
	if err != nil {
		return err
	}
	if other.Class() != target {
		return fmt.Errorf("relationship %q expects a %q node, got %q",
			m.def.Name, target.Name(), other.Class().Name())
	}
	return nil
}

func (m *Manager) inflateRelRows(res *db.Result) ([]*model.Relationship, error) {
	out := make([]*model.Relationship, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) == 0 {
			continue
		}
		raw, ok := row[0].(db.Relationship)
		if !ok {
			return nil, fmt.Errorf("relationship %q: expected a relationship, got %T", m.def.Name, row[0])
		}
		rel, err := m.def.Model.InflateRelationship(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}

// relDef renders the bracketed relationship part of a pattern:
// [ident:`TYPE`] with optional inline properties.
func relDef(ident, relType, props string) string {
	return fmt.Sprintf("[%s:`%s`%s]", ident, relType, props)
}

// relPattern joins two pattern sides with a directed relationship. Sides
// already ending in ")" are taken as complete node patterns.
func relPattern(lhs, rhs, rel string, dir model.Direction) string {
	var stmt string
	switch dir {
	case model.Outgoing:
		stmt = "-" + rel + "->"
	case model.Incoming:
		stmt = "<-" + rel + "-"
	default:
		stmt = "-" + rel + "-"
	}
	if !strings.HasSuffix(lhs, ")") {
		lhs = "(" + lhs + ")"
	}
	if !strings.HasSuffix(rhs, ")") {
		rhs = "(" + rhs + ")"
	}
	return lhs + stmt + rhs
}
