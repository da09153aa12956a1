package model

import (
	"fmt"
	"sort"

	"github.com/orneryd/nornogm/pkg/db"
)

// ClassKind distinguishes node classes from relationship classes.
type ClassKind int

const (
	NodeClass ClassKind = iota
	RelationshipClass
)

// Class is the static definition of a node or relationship model: a label
// (or relation type), an ordered set of declared properties, and named
// relationship definitions. Classes are built once at startup and treated
// as immutable afterwards.
type Class struct {
	name     string
	label    string
	kind     ClassKind
	database string

	parents   []*Class
	propOrder []string
	props     map[string]*Property
	rels      map[string]*RelationshipDef
}

// NewClass declares a node class with the given label and properties.
// Duplicate property names panic: class definitions are static program
// structure, like an invalid regexp literal.
func NewClass(label string, props ...*Property) *Class {
	c := &Class{
		name:  label,
		label: label,
		kind:  NodeClass,
		props: map[string]*Property{},
		rels:  map[string]*RelationshipDef{},
	}
	for _, p := range props {
		c.addProperty(p)
	}
	return c
}

// NewRelationshipClass declares a relationship class carrying properties
// for a relation type.
func NewRelationshipClass(relType string, props ...*Property) *Class {
	c := NewClass(relType, props...)
	c.kind = RelationshipClass
	return c
}

func (c *Class) addProperty(p *Property) {
	if _, dup := c.props[p.Name]; dup {
		panic(fmt.Sprintf("model: class %q redeclares property %q", c.name, p.Name))
	}
	if _, dup := c.rels[p.Name]; dup {
		panic(fmt.Sprintf("model: class %q property %q collides with a relationship", c.name, p.Name))
	}
	c.props[p.Name] = p
	c.propOrder = append(c.propOrder, p.Name)
}

// Extend records parent classes whose labels this class also carries.
// Parent properties are visible on the child unless shadowed.
func (c *Class) Extend(parents ...*Class) *Class {
	c.parents = append(c.parents, parents...)
	return c
}

// ForDatabase scopes the class to a specific database name, so the same
// label set can map to different classes per database.
func (c *Class) ForDatabase(database string) *Class {
	c.database = database
	return c
}

// Relate declares a named traversal to another class, identified by class
// name for lazy resolution. Duplicate names panic, same as properties.
func (c *Class) Relate(name, relType string, dir Direction, targetName string, opts ...RelateOption) *Class {
	if _, dup := c.rels[name]; dup {
		panic(fmt.Sprintf("model: class %q redeclares relationship %q", c.name, name))
	}
	if _, dup := c.props[name]; dup {
		panic(fmt.Sprintf("model: class %q relationship %q collides with a property", c.name, name))
	}
	d := &RelationshipDef{
		Name:       name,
		Type:       relType,
		Direction:  dir,
		TargetName: targetName,
		owner:      c,
	}
	for _, opt := range opts {
		opt(d)
	}
	c.rels[name] = d
	return c
}

// Name returns the class name used for lazy relationship resolution.
func (c *Class) Name() string { return c.name }

// Label returns the class's own label (or relation type).
func (c *Class) Label() string { return c.label }

// Kind reports whether this is a node or relationship class.
func (c *Class) Kind() ClassKind { return c.kind }

// Database returns the database scope, empty for the global registry.
func (c *Class) Database() string { return c.database }

// InheritedLabels returns the class's own label followed by every
// ancestor label, depth-first, without duplicates.
func (c *Class) InheritedLabels() []string {
	seen := map[string]bool{}
	var out []string
	var walk func(*Class)
	walk = func(cl *Class) {
		if !seen[cl.label] {
			seen[cl.label] = true
			out = append(out, cl.label)
		}
		for _, p := range cl.parents {
			walk(p)
		}
	}
	walk(c)
	return out
}

// Property looks up a declared property by name, following aliases and
// searching ancestors. The second return is the resolved property name
// after alias expansion.
func (c *Class) Property(name string) (*Property, string, bool) {
	if p, ok := c.props[name]; ok {
		if p.Kind == KindAlias {
			return c.Property(p.AliasTo)
		}
		return p, name, true
	}
	for _, parent := range c.parents {
		if p, resolved, ok := parent.Property(name); ok {
			return p, resolved, ok
		}
	}
	return nil, "", false
}

// Properties returns all declared properties including inherited ones, in
// declaration order, parents after the class's own.
func (c *Class) Properties() []*Property {
	seen := map[string]bool{}
	var out []*Property
	var walk func(*Class)
	walk = func(cl *Class) {
		for _, name := range cl.propOrder {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, cl.props[name])
		}
		for _, p := range cl.parents {
			walk(p)
		}
	}
	walk(c)
	return out
}

// RequiredProperties returns the database names of required properties;
// these form the merge key for get-or-create operations.
func (c *Class) RequiredProperties() []string {
	var out []string
	for _, p := range c.Properties() {
		if p.Required {
			out = append(out, p.DBName)
		}
	}
	sort.Strings(out)
	return out
}

// Relationship looks up a declared traversal by name, searching ancestors.
func (c *Class) Relationship(name string) (*RelationshipDef, bool) {
	if d, ok := c.rels[name]; ok {
		return d, true
	}
	for _, parent := range c.parents {
		if d, ok := parent.Relationship(name); ok {
			return d, ok
		}
	}
	return nil, false
}

// Relationships returns all declared traversals including inherited ones.
func (c *Class) Relationships() []*RelationshipDef {
	seen := map[string]bool{}
	var out []*RelationshipDef
	var walk func(*Class)
	walk = func(cl *Class) {
		names := make([]string, 0, len(cl.rels))
		for name := range cl.rels {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, cl.rels[name])
		}
		for _, p := range cl.parents {
			walk(p)
		}
	}
	walk(c)
	return out
}

// Deflate converts a map of application values keyed by property name into
// stored values keyed by database name. Missing properties take their
// defaults; missing required properties without defaults are an error.
// Unknown keys are rejected rather than passed through.
func (c *Class) Deflate(values map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for name, v := range values {
		p, resolved, ok := c.Property(name)
		if !ok {
			return nil, &NoSuchPropertyError{Class: c, Property: name}
		}
		if v == nil {
			out[p.DBName] = nil
			continue
		}
		stored, err := p.Deflate(v)
		if err != nil {
			return nil, &DeflateError{Class: c, Property: resolved, Value: v, cause: err}
		}
		out[p.DBName] = stored
	}
	for _, p := range c.Properties() {
		if p.Kind == KindAlias {
			continue
		}
		if _, set := out[p.DBName]; set {
			continue
		}
		if p.Default != nil {
			stored, err := p.Deflate(p.Default())
			if err != nil {
				return nil, &DeflateError{Class: c, Property: p.Name, Value: p.Default(), cause: err}
			}
			out[p.DBName] = stored
			continue
		}
		if p.Required {
			return nil, &RequiredPropertyError{Class: c, Property: p.Name}
		}
	}
	return out, nil
}

// Inflate converts a raw node's stored properties into an instance of
// this class. Stored properties with no declaration are carried through
// untouched.
func (c *Class) Inflate(raw db.Node) (*Node, error) {
	props, err := c.inflateProps(raw.Props)
	if err != nil {
		return nil, err
	}
	return &Node{
		class:     c,
		elementID: raw.ElementID,
		labels:    raw.Labels,
		props:     props,
		Relations: map[string]any{},
	}, nil
}

// InflateRelationship converts a raw relationship into an instance. The
// receiver may be nil for relation types with no registered class, in
// which case properties pass through as stored.
func (c *Class) InflateRelationship(raw db.Relationship) (*Relationship, error) {
	props := raw.Props
	if c != nil {
		var err error
		props, err = c.inflateProps(raw.Props)
		if err != nil {
			return nil, err
		}
	}
	return &Relationship{
		class:          c,
		relType:        raw.Type,
		elementID:      raw.ElementID,
		startElementID: raw.StartElementID,
		endElementID:   raw.EndElementID,
		props:          props,
		Relations:      map[string]any{},
	}, nil
}

func (c *Class) inflateProps(stored map[string]any) (map[string]any, error) {
	// Index declared properties by database name for the reverse mapping.
	byDBName := map[string]*Property{}
	for _, p := range c.Properties() {
		if p.Kind != KindAlias {
			byDBName[p.DBName] = p
		}
	}
	out := map[string]any{}
	for dbName, v := range stored {
		p, declared := byDBName[dbName]
		if !declared {
			out[dbName] = v
			continue
		}
		if v == nil {
			out[p.Name] = nil
			continue
		}
		app, err := p.Inflate(v)
		if err != nil {
			return nil, &InflateError{Class: c, Property: p.Name, Value: v, cause: err}
		}
		out[p.Name] = app
	}
	return out, nil
}
