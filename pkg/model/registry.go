package model

import (
	"sort"
	"strings"
	"sync"
)

// Registry maps database shapes back to model classes: node label sets to
// node classes and relation types to relationship classes, with optional
// per-database scoping. It is populated at startup and read-mostly
// afterwards; lookups are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	nodes   map[string]*Class            // label-set key -> class
	dbNodes map[string]map[string]*Class // database -> label-set key -> class
	rels    map[string]*Class            // relation type -> class
	dbRels  map[string]map[string]*Class
	byName  map[string]*Class
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:   map[string]*Class{},
		dbNodes: map[string]map[string]*Class{},
		rels:    map[string]*Class{},
		dbRels:  map[string]map[string]*Class{},
		byName:  map[string]*Class{},
	}
}

// labelSetKey builds an order-insensitive key for a label set.
func labelSetKey(labels []string) string {
	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x1f")
}

// Register adds a class to the registry. Node classes are keyed by their
// full inherited label set, relationship classes by relation type. A
// second class claiming the same key in the same scope is an error.
func (r *Registry) Register(c *Class) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch c.Kind() {
	case RelationshipClass:
		table := r.rels
		if c.database != "" {
			table = r.dbRels[c.database]
			if table == nil {
				table = map[string]*Class{}
				r.dbRels[c.database] = table
			}
		}
		if existing, dup := table[c.label]; dup && existing != c {
			return &ClassAlreadyDefinedError{New: c, Existing: existing}
		}
		table[c.label] = c
	default:
		key := labelSetKey(c.InheritedLabels())
		table := r.nodes
		if c.database != "" {
			table = r.dbNodes[c.database]
			if table == nil {
				table = map[string]*Class{}
				r.dbNodes[c.database] = table
			}
		}
		if existing, dup := table[key]; dup && existing != c {
			return &ClassAlreadyDefinedError{New: c, Existing: existing}
		}
		table[key] = c
	}
	r.byName[c.name] = c
	return nil
}

// MustRegister registers classes and panics on conflict, for startup-time
// model declarations.
func (r *Registry) MustRegister(classes ...*Class) {
	for _, c := range classes {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// LookupNode finds the class registered for a node's exact label set,
// preferring the database-scoped table when database is non-empty.
func (r *Registry) LookupNode(labels []string, database string) (*Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := labelSetKey(labels)
	if database != "" {
		if table := r.dbNodes[database]; table != nil {
			if c, ok := table[key]; ok {
				return c, nil
			}
		}
	}
	if c, ok := r.nodes[key]; ok {
		return c, nil
	}
	return nil, &NodeClassNotDefinedError{Labels: labels, Database: database, dump: r.dumpLocked()}
}

// LookupRelationship finds the class registered for a relation type; a
// nil class with nil error means the type is legitimately unregistered
// and the relationship resolves without property inflation.
func (r *Registry) LookupRelationship(relType, database string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if database != "" {
		if table := r.dbRels[database]; table != nil {
			if c, ok := table[relType]; ok {
				return c, true
			}
		}
	}
	c, ok := r.rels[relType]
	return c, ok
}

// ClassByName finds a registered class by name, for lazy relationship
// target resolution.
func (r *Registry) ClassByName(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// NodeClasses returns every registered node class, global scope first,
// in stable order. Used by schema installation.
func (r *Registry) NodeClasses() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Class
	for _, key := range sortedKeys(r.nodes) {
		out = append(out, r.nodes[key])
	}
	for _, dbName := range sortedKeys(r.dbNodes) {
		for _, key := range sortedKeys(r.dbNodes[dbName]) {
			out = append(out, r.dbNodes[dbName][key])
		}
	}
	return out
}

// Dump renders the registry contents for diagnostics, one line per
// registered label set.
func (r *Registry) Dump() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dumpLocked()
}

func (r *Registry) dumpLocked() string {
	var b strings.Builder
	writeTable := func(table map[string]*Class) {
		for _, key := range sortedKeys(table) {
			labels := strings.Join(strings.Split(key, "\x1f"), ", ")
			b.WriteString("  {")
			b.WriteString(labels)
			b.WriteString("} --> ")
			b.WriteString(table[key].Name())
			b.WriteString("\n")
		}
	}
	writeTable(r.nodes)
	for _, dbName := range sortedKeys(r.dbNodes) {
		b.WriteString("Database-specific: ")
		b.WriteString(dbName)
		b.WriteString("\n")
		writeTable(r.dbNodes[dbName])
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
