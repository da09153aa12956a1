package nornogm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/orneryd/nornogm/pkg/db"
	"github.com/orneryd/nornogm/pkg/model"
)

// Save writes a node to the database. Unsaved nodes are created and pick
// up their identity and generated defaults; saved nodes get their
// properties SET and their labels re-asserted.
func (d *DB) Save(ctx context.Context, n *model.Node) error {
	if n.Deleted() {
		return fmt.Errorf("save %q: %w", n.Class().Name(), ErrDeletedNode)
	}
	if !n.Saved() {
		created, err := d.Create(ctx, n.Class(), n.Properties())
		if err != nil {
			return err
		}
		if len(created) == 0 {
			return fmt.Errorf("save %q: server returned no node", n.Class().Name())
		}
		n.SetElementID(created[0].ElementID())
		n.SetProperties(created[0].Properties())
		return nil
	}

	deflated, err := n.Class().Deflate(n.Properties())
	if err != nil {
		return err
	}
	idFn := string(d.identity())

	var q strings.Builder
	fmt.Fprintf(&q, "MATCH (n) WHERE %s(n)=$self\n", idFn)
	params := map[string]any{"self": d.selfParam(n)}
	if len(deflated) > 0 {
		keys := make([]string, 0, len(deflated))
		for k := range deflated {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		assignments := make([]string, len(keys))
		for i, k := range keys {
			assignments[i] = fmt.Sprintf("n.%s = $%s", k, k)
			params[k] = deflated[k]
		}
		q.WriteString("SET ")
		q.WriteString(strings.Join(assignments, ",\n"))
		q.WriteString("\n")
	}
	labelSets := make([]string, 0, 2)
	for _, label := range n.Class().InheritedLabels() {
		labelSets = append(labelSets, fmt.Sprintf("SET n:`%s`", label))
	}
	q.WriteString(strings.Join(labelSets, "\n"))

	d.log.Debug("saving node",
		zap.String("class", n.Class().Name()),
		zap.String("element_id", n.ElementID()))
	_, err = d.exec.Execute(ctx, q.String(), params)
	return err
}

// Create writes one node per property map and returns the saved
// instances, identities and defaults filled in.
func (d *DB) Create(ctx context.Context, class *model.Class, props ...map[string]any) ([]*model.Node, error) {
	query := fmt.Sprintf("CREATE (n:%s $create_params) RETURN n",
		strings.Join(class.InheritedLabels(), ":"))

	out := make([]*model.Node, 0, len(props))
	for _, p := range props {
		deflated, err := class.Deflate(p)
		if err != nil {
			return nil, err
		}
		res, err := d.exec.Execute(ctx, query, map[string]any{"create_params": deflated})
		if err != nil {
			return nil, err
		}
		nodes, err := inflateNodeRows(res, class)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

// GetOrCreate merges one node per property map, keyed on the class's
// required properties. Existing nodes keep their current property values.
func (d *DB) GetOrCreate(ctx context.Context, class *model.Class, props ...map[string]any) ([]*model.Node, error) {
	return d.mergeNodes(ctx, class, props, false, nil)
}

// CreateOrUpdate merges like GetOrCreate but also writes the explicitly
// given properties onto nodes that already exist.
func (d *DB) CreateOrUpdate(ctx context.Context, class *model.Class, props ...map[string]any) ([]*model.Node, error) {
	return d.mergeNodes(ctx, class, props, true, nil)
}

// mergeNodes compiles and runs the UNWIND + MERGE query behind
// GetOrCreate and CreateOrUpdate. A non-nil through additionally scopes
// the merge to nodes related to the manager's source node, creating the
// relationship for nodes the merge creates.
func (d *DB) mergeNodes(ctx context.Context, class *model.Class, props []map[string]any, updateExisting bool, through *Manager) ([]*model.Node, error) {
	mergeParams := make([]any, 0, len(props))
	for _, p := range props {
		deflated, err := class.Deflate(p)
		if err != nil {
			return nil, err
		}
		entry := map[string]any{"create": deflated}
		if updateExisting {
			// Only properties the caller explicitly passed are written on
			// match; generated defaults must not clobber existing values.
			update := map[string]any{}
			for name := range p {
				if prop, _, ok := class.Property(name); ok {
					if v, set := deflated[prop.DBName]; set {
						update[prop.DBName] = v
					}
				}
			}
			entry["update"] = update
		}
		mergeParams = append(mergeParams, entry)
	}
	params := map[string]any{"merge_params": mergeParams}

	keyParts := make([]string, 0, 1)
	for _, k := range class.RequiredProperties() {
		keyParts = append(keyParts, fmt.Sprintf("%s: params.create.%s", k, k))
	}
	nMerge := fmt.Sprintf("n:%s {%s}",
		strings.Join(class.InheritedLabels(), ":"), strings.Join(keyParts, ", "))

	var q strings.Builder
	if through == nil {
		fmt.Fprintf(&q, "UNWIND $merge_params as params MERGE (%s)", nMerge)
	} else {
		if err := checkAction(through.node, "merge through"); err != nil {
			return nil, err
		}
		params["source_id"] = d.selfParam(through.node)
		idFn := string(d.identity())
		fmt.Fprintf(&q, "MATCH (source:%s) WHERE %s(source) = $source_id WITH source UNWIND $merge_params as params MERGE %s",
			through.node.Class().Label(), idFn,
			relPattern("source", "("+nMerge+")", relDef("", through.def.Type, ""), through.def.Direction))
	}
	q.WriteString(" ON CREATE SET n = params.create")
	if updateExisting {
		q.WriteString(" ON MATCH SET n += params.update")
	}
	q.WriteString(" RETURN n")

	res, err := d.exec.Execute(ctx, q.String(), params)
	if err != nil {
		return nil, err
	}
	return inflateNodeRows(res, class)
}

// Delete detaches and removes the node, then flags the instance so later
// lifecycle calls fail fast.
func (d *DB) Delete(ctx context.Context, n *model.Node) error {
	if err := checkAction(n, "delete"); err != nil {
		return err
	}
	query := fmt.Sprintf("MATCH (self) WHERE %s(self)=$self DETACH DELETE self", d.identity())
	if _, err := d.exec.Execute(ctx, query, map[string]any{"self": d.selfParam(n)}); err != nil {
		return err
	}
	n.MarkDeleted()
	return nil
}

// Refresh reloads the node's properties from the database.
func (d *DB) Refresh(ctx context.Context, n *model.Node) error {
	if err := checkAction(n, "refresh"); err != nil {
		return err
	}
	query := fmt.Sprintf("MATCH (n) WHERE %s(n)=$self RETURN n", d.identity())
	res, err := d.exec.Execute(ctx, query, map[string]any{"self": d.selfParam(n)})
	if err != nil {
		return err
	}
	nodes, err := inflateNodeRows(res, n.Class())
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return &model.NotFoundError{Class: n.Class()}
	}
	n.SetProperties(nodes[0].Properties())
	return nil
}

// Labels reads the labels the database currently holds for the node.
func (d *DB) Labels(ctx context.Context, n *model.Node) ([]string, error) {
	if err := checkAction(n, "labels"); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("MATCH (n) WHERE %s(n)=$self RETURN labels(n)", d.identity())
	res, err := d.exec.Execute(ctx, query, map[string]any{"self": d.selfParam(n)})
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return nil, &model.NotFoundError{Class: n.Class()}
	}
	raw, ok := res.Rows[0][0].([]any)
	if !ok {
		return nil, fmt.Errorf("labels of %q: expected a list, got %T", n.Class().Name(), res.Rows[0][0])
	}
	labels := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("labels of %q: expected a string, got %T", n.Class().Name(), v)
		}
		labels = append(labels, s)
	}
	return labels, nil
}

func inflateNodeRows(res *db.Result, class *model.Class) ([]*model.Node, error) {
	out := make([]*model.Node, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) == 0 {
			continue
		}
		raw, ok := row[0].(db.Node)
		if !ok {
			return nil, fmt.Errorf("expected a node for class %q, got %T", class.Name(), row[0])
		}
		n, err := class.Inflate(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
