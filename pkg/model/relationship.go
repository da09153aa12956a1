package model

// Direction of a declared traversal relative to the owning class.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Either
)

// Cardinality constrains how many related nodes a relationship definition
// may bind on the instance side.
type Cardinality int

const (
	// ZeroOrMore places no constraint (the default).
	ZeroOrMore Cardinality = iota
	// OneOrMore requires at least one related node.
	OneOrMore
	// ZeroOrOne allows at most one related node.
	ZeroOrOne
	// One requires exactly one related node.
	One
)

// RelationshipDef declares a named, typed, directed traversal from one
// class to another. The target is named, not referenced, so classes can
// relate to classes defined later; resolution happens lazily against the
// registry.
type RelationshipDef struct {
	Name        string
	Type        string
	Direction   Direction
	TargetName  string
	Model       *Class
	Cardinality Cardinality

	owner  *Class
	target *Class
}

// RelateOption mutates a relationship definition at declaration time.
type RelateOption func(*RelationshipDef)

// WithModel attaches a relationship class carrying properties on the
// relationship itself.
func WithModel(m *Class) RelateOption {
	return func(d *RelationshipDef) { d.Model = m }
}

// WithCardinality constrains the relationship's instance-side arity.
func WithCardinality(c Cardinality) RelateOption {
	return func(d *RelationshipDef) { d.Cardinality = c }
}

// Owner returns the class this definition was declared on.
func (d *RelationshipDef) Owner() *Class { return d.owner }

// Target resolves the destination class by name against the registry.
func (d *RelationshipDef) Target(reg *Registry) (*Class, error) {
	if d.target != nil {
		return d.target, nil
	}
	c, ok := reg.ClassByName(d.TargetName)
	if !ok {
		return nil, &ClassNotRegisteredError{Name: d.TargetName}
	}
	d.target = c
	return c, nil
}
