package model

// Entity is the common surface of resolved nodes and relationships.
type Entity interface {
	ElementID() string
	Get(name string) (any, bool)
	entity()
}

// Node is a materialized instance of a node class. Relations holds
// traversal results attached during subgraph resolution, keyed by path
// segment name: either a single related entity or a []any list of them,
// each recursively carrying its own Relations.
type Node struct {
	class     *Class
	elementID string
	labels    []string
	props     map[string]any
	deleted   bool

	Relations map[string]any
}

// NewNode builds an unsaved instance of the class with the given
// application-side property values.
func NewNode(c *Class, props map[string]any) *Node {
	copied := make(map[string]any, len(props))
	for k, v := range props {
		copied[k] = v
	}
	return &Node{class: c, props: copied, Relations: map[string]any{}}
}

// Class returns the node's model class.
func (n *Node) Class() *Class { return n.class }

// ElementID returns the database identity, empty for unsaved nodes.
func (n *Node) ElementID() string { return n.elementID }

// SetElementID records the database identity after a save.
func (n *Node) SetElementID(id string) { n.elementID = id }

// Saved reports whether the node has a database identity.
func (n *Node) Saved() bool { return n.elementID != "" }

// MarkDeleted flags the node as removed from the database. Further
// lifecycle operations on it are rejected.
func (n *Node) MarkDeleted() {
	n.deleted = true
	n.elementID = ""
}

// Deleted reports whether the node was removed from the database.
func (n *Node) Deleted() bool { return n.deleted }

// Labels returns the labels the database reported for this node, falling
// back to the class's inherited labels for unsaved instances.
func (n *Node) Labels() []string {
	if len(n.labels) > 0 {
		return n.labels
	}
	return n.class.InheritedLabels()
}

// Get returns a property value by name, following aliases.
func (n *Node) Get(name string) (any, bool) {
	if p, ok := n.class.props[name]; ok && p.Kind == KindAlias {
		name = p.AliasTo
	}
	v, ok := n.props[name]
	return v, ok
}

// Set stores a property value by name, following aliases.
func (n *Node) Set(name string, v any) {
	if p, ok := n.class.props[name]; ok && p.Kind == KindAlias {
		name = p.AliasTo
	}
	n.props[name] = v
}

// Properties returns the node's application-side property map.
func (n *Node) Properties() map[string]any { return n.props }

// SetProperties replaces the property map, used by refresh.
func (n *Node) SetProperties(props map[string]any) { n.props = props }

func (n *Node) entity() {}

// Relationship is a materialized instance of a relationship, possibly of
// a registered relationship class.
type Relationship struct {
	class          *Class
	relType        string
	elementID      string
	startElementID string
	endElementID   string
	props          map[string]any

	Relations map[string]any
}

// Class returns the relationship's model class, nil when the relation
// type has no registered class.
func (r *Relationship) Class() *Class { return r.class }

// Type returns the relation type.
func (r *Relationship) Type() string { return r.relType }

// ElementID returns the database identity.
func (r *Relationship) ElementID() string { return r.elementID }

// StartElementID returns the identity of the relationship's start node.
func (r *Relationship) StartElementID() string { return r.startElementID }

// EndElementID returns the identity of the relationship's end node.
func (r *Relationship) EndElementID() string { return r.endElementID }

// Get returns a relationship property value by name.
func (r *Relationship) Get(name string) (any, bool) {
	v, ok := r.props[name]
	return v, ok
}

// Properties returns the relationship's property map.
func (r *Relationship) Properties() map[string]any { return r.props }

func (r *Relationship) entity() {}

// NodePath is a resolved graph path: alternating nodes and the
// relationships between them, each materialized through the registry.
type NodePath struct {
	Nodes         []*Node
	Relationships []*Relationship
}

// Start returns the first node of the path, nil when empty.
func (p *NodePath) Start() *Node {
	if len(p.Nodes) == 0 {
		return nil
	}
	return p.Nodes[0]
}

// End returns the last node of the path, nil when empty.
func (p *NodePath) End() *Node {
	if len(p.Nodes) == 0 {
		return nil
	}
	return p.Nodes[len(p.Nodes)-1]
}
