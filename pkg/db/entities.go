package db

// Node is a raw graph node as returned by the server, before any model
// resolution. Labels keep the server's order; Props hold deflated property
// values.
type Node struct {
	ElementID string
	Labels    []string
	Props     map[string]any
}

// Relationship is a raw graph relationship. StartElementID and EndElementID
// reference the element IDs of the bounding nodes.
type Relationship struct {
	ElementID      string
	Type           string
	StartElementID string
	EndElementID   string
	Props          map[string]any
}

// Path is a raw graph path: len(Nodes) == len(Relationships)+1 for any
// non-empty path.
type Path struct {
	Nodes         []Node
	Relationships []Relationship
}
