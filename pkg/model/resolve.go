package model

import "github.com/orneryd/nornogm/pkg/db"

// Resolver materializes raw driver values into model instances through a
// registry, recursing into lists, maps, and paths. Scalars pass through
// untouched.
type Resolver struct {
	Registry *Registry
	Database string
}

// Resolve converts one raw value. Nodes resolve by exact label set,
// relationships by relation type (unregistered types keep raw
// properties), and paths resolve element-wise.
func (r *Resolver) Resolve(v any) (any, error) {
	switch t := v.(type) {
	case db.Node:
		c, err := r.Registry.LookupNode(t.Labels, r.Database)
		if err != nil {
			return nil, err
		}
		return c.Inflate(t)
	case *db.Node:
		return r.Resolve(*t)
	case db.Relationship:
		c, _ := r.Registry.LookupRelationship(t.Type, r.Database)
		return c.InflateRelationship(t)
	case *db.Relationship:
		return r.Resolve(*t)
	case db.Path:
		return r.resolvePath(t)
	case *db.Path:
		return r.resolvePath(*t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			resolved, err := r.Resolve(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			resolved, err := r.Resolve(item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// ResolveRows converts every cell of a result table in place order,
// returning a new table.
func (r *Resolver) ResolveRows(rows [][]any) ([][]any, error) {
	out := make([][]any, len(rows))
	for i, row := range rows {
		resolved := make([]any, len(row))
		for j, cell := range row {
			v, err := r.Resolve(cell)
			if err != nil {
				return nil, err
			}
			resolved[j] = v
		}
		out[i] = resolved
	}
	return out, nil
}

func (r *Resolver) resolvePath(p db.Path) (*NodePath, error) {
	out := &NodePath{
		Nodes:         make([]*Node, 0, len(p.Nodes)),
		Relationships: make([]*Relationship, 0, len(p.Relationships)),
	}
	for _, raw := range p.Nodes {
		resolved, err := r.Resolve(raw)
		if err != nil {
			return nil, err
		}
		out.Nodes = append(out.Nodes, resolved.(*Node))
	}
	for _, raw := range p.Relationships {
		resolved, err := r.Resolve(raw)
		if err != nil {
			return nil, err
		}
		out.Relationships = append(out.Relationships, resolved.(*Relationship))
	}
	return out, nil
}
