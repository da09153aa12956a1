// Package nornogm is the user-facing entry point of the OGM.
//
// A DB bundles an executor, a class registry and a database scope. From it
// you reach the three layers underneath: NodeSet queries (pkg/cypher),
// instance lifecycle (Save, Create, GetOrCreate, Delete, Refresh),
// relationship managers with cardinality enforcement, and schema DDL
// installation derived from property declarations.
//
//	reg := model.NewRegistry()
//	coffee := model.NewClass("Coffee", model.String("name", model.Required()))
//	reg.Register(coffee)
//
//	gdb, err := nornogm.Open(ctx, "bolt://localhost:7687", db.BoltOptions{}, nornogm.WithRegistry(reg))
//	...
//	nodes, err := gdb.Nodes(coffee).Filter(cypher.Where("name", "arabica")).All(ctx)
package nornogm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/orneryd/nornogm/pkg/cypher"
	"github.com/orneryd/nornogm/pkg/db"
	"github.com/orneryd/nornogm/pkg/model"
)

// Lifecycle errors. Both are wrapped with the offending class and
// operation; match with errors.Is.
var (
	// ErrUnsavedNode marks an operation that needs a database identity.
	ErrUnsavedNode = errors.New("node has not been saved")
	// ErrDeletedNode marks an operation attempted after Delete.
	ErrDeletedNode = errors.New("node has been deleted")
	// ErrNotConnected marks a relationship operation between nodes that
	// share no relationship of the managed type.
	ErrNotConnected = errors.New("nodes are not connected")
)

// DB is the facade over one graph database connection.
//
// It is safe for concurrent use: all state is set at construction and the
// executor contract requires concurrency safety.
type DB struct {
	exec     db.Executor
	registry *model.Registry
	database string
	log      *zap.Logger
	runner   *cypher.Runner
	closer   func(context.Context) error
}

// Option configures a DB at construction.
type Option func(*DB)

// WithRegistry supplies the class registry used for result resolution.
// Without it the DB starts with an empty registry; use Register.
func WithRegistry(r *model.Registry) Option {
	return func(d *DB) { d.registry = r }
}

// WithDatabase scopes all queries and registry lookups to a named
// database.
func WithDatabase(name string) Option {
	return func(d *DB) { d.database = name }
}

// WithLogger sets the logger. Default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *DB) { d.log = l }
}

// New wraps an existing executor. Tests hand in a scripted stub here.
func New(exec db.Executor, opts ...Option) *DB {
	d := &DB{exec: exec, log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = model.NewRegistry()
	}
	d.log = d.log.Named("nornogm")
	d.runner = &cypher.Runner{
		Exec:     exec,
		Registry: d.registry,
		Database: d.database,
		Logger:   d.log,
	}
	return d
}

// Open connects to a Bolt endpoint and wraps the connection.
func Open(ctx context.Context, uri string, bolt db.BoltOptions, opts ...Option) (*DB, error) {
	exec, err := db.OpenBolt(ctx, uri, bolt)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	d := New(exec, opts...)
	d.closer = exec.Close
	return d, nil
}

// Close releases the underlying connection, if the DB owns one.
func (d *DB) Close(ctx context.Context) error {
	if d.closer == nil {
		return nil
	}
	return d.closer(ctx)
}

// Registry returns the class registry backing result resolution.
func (d *DB) Registry() *model.Registry { return d.registry }

// Register adds classes to the registry.
func (d *DB) Register(classes ...*model.Class) error {
	for _, c := range classes {
		if err := d.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Nodes starts a query over all nodes of a class.
func (d *DB) Nodes(class *model.Class) *cypher.NodeSet {
	return cypher.Nodes(d.runner, class)
}

// Runner exposes the query runner for callers composing NodeSets
// directly.
func (d *DB) Runner() *cypher.Runner { return d.runner }

// Cypher runs a raw query against the underlying executor.
func (d *DB) Cypher(ctx context.Context, query string, params map[string]any) (*db.Result, error) {
	return d.exec.Execute(ctx, query, params)
}

func (d *DB) identity() db.IdentityFunc { return d.exec.Identity() }

// selfParam converts a node's element id into the shape the identity
// function compares against.
func (d *DB) selfParam(n *model.Node) any {
	return d.identity().ParseElementID(n.ElementID())
}

// checkAction rejects lifecycle operations on deleted or unsaved nodes.
func checkAction(n *model.Node, action string) error {
	if n.Deleted() {
		return fmt.Errorf("%s %q: %w", action, n.Class().Name(), ErrDeletedNode)
	}
	if !n.Saved() {
		return fmt.Errorf("%s %q: %w", action, n.Class().Name(), ErrUnsavedNode)
	}
	return nil
}
