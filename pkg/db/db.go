// Package db defines the execution boundary between the OGM and a
// Neo4j-compatible graph database server.
//
// The query compiler in pkg/cypher never talks to a server directly. It
// produces a Cypher string plus a parameter map and hands both to an
// Executor. The only Executor shipped here is BoltExecutor, a thin adapter
// over the official Bolt driver, but anything that can run a query and hand
// back rows with column names satisfies the contract — tests use a scripted
// stub from pkg/db/dbtest.
//
// Raw graph values (Node, Relationship, Path) returned inside rows are the
// package's own types, decoupled from the driver's, so that result
// resolution in pkg/model does not depend on any driver.
package db

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Common errors.
var (
	ErrNoDriver      = errors.New("no driver has been set")
	ErrSessionClosed = errors.New("session closed")
)

// IdentityFunc is the Cypher function used to read a node's identity.
// Servers before major version 5 only know id(); newer ones deprecate it in
// favor of elementId(). The choice is a capability of the connected server,
// resolved once per executor and passed to the query builder as
// configuration.
type IdentityFunc string

const (
	// FuncID is the legacy numeric identity function.
	FuncID IdentityFunc = "id"
	// FuncElementID is the string identity function introduced in v5.
	FuncElementID IdentityFunc = "elementId"
)

// ParseElementID converts a stored element id into the parameter shape
// the identity function expects: legacy id() compares against the numeric
// part of the element id, elementId() against the full string.
func (f IdentityFunc) ParseElementID(elementID string) any {
	if f != FuncID {
		return elementID
	}
	// Element ids look like "4:deadbeef-...:17"; the legacy numeric id is
	// the last segment.
	parts := strings.Split(elementID, ":")
	n, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return elementID
	}
	return n
}

// Result holds the tabular output of one executed query.
//
// Rows are ordered exactly as the server returned them; each row is aligned
// with Columns. Values are either primitives (bool, int64, float64, string,
// time.Time, []any, map[string]any) or the raw graph types Node,
// Relationship and Path.
type Result struct {
	Rows    [][]any
	Columns []string
}

// Executor runs a single Cypher query with parameters.
//
// Implementations must surface constraint-violation errors as
// *ConstraintError (see errors.go) so callers can distinguish them, and must
// propagate every other server error unchanged.
type Executor interface {
	Execute(ctx context.Context, query string, params map[string]any) (*Result, error)

	// Identity reports which identity function the connected server
	// supports.
	Identity() IdentityFunc
}
