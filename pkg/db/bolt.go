package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// BoltOptions tune a BoltExecutor beyond the connection URI.
type BoltOptions struct {
	// Username and Password select basic auth. Empty username disables auth.
	Username string
	Password string

	// Database is the target database name, empty for the server default.
	Database string

	// HandleUnique opts into remapping uniqueness conflicts to a distinct
	// error kind (see ConstraintError.Unique).
	HandleUnique bool

	// RetryOnSessionExpire replays a query exactly once on a fresh session
	// when the server reports the previous one expired.
	RetryOnSessionExpire bool

	// SlowQueryThreshold promotes the per-query debug log to a warning when
	// execution takes longer. Zero disables the warning.
	SlowQueryThreshold time.Duration

	// Logger receives per-query logs. Nil means no logging.
	Logger *zap.Logger
}

// BoltExecutor adapts the Bolt driver to the Executor contract. One
// executor owns one driver; each Execute call runs in its own short-lived
// session, so the executor is safe for concurrent use.
type BoltExecutor struct {
	driver   neo4j.DriverWithContext
	opts     BoltOptions
	identity IdentityFunc
	log      *zap.Logger
}

var _ Executor = (*BoltExecutor)(nil)

// OpenBolt connects to uri and resolves the server's identity-function
// capability. The capability probe is best effort: servers that refuse
// dbms.components() are assumed to be v5+.
func OpenBolt(ctx context.Context, uri string, opts BoltOptions) (*BoltExecutor, error) {
	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("open bolt driver: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &BoltExecutor{
		driver:   driver,
		opts:     opts,
		identity: FuncElementID,
		log:      logger.Named("BoltExecutor"),
	}
	e.identity = e.detectIdentity(ctx)
	return e, nil
}

// Close releases the underlying driver.
func (e *BoltExecutor) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// Identity reports the identity function the connected server supports.
func (e *BoltExecutor) Identity() IdentityFunc { return e.identity }

// Execute runs one query in a fresh session and collects all rows.
func (e *BoltExecutor) Execute(ctx context.Context, query string, params map[string]any) (*Result, error) {
	result, err := e.run(ctx, query, params)
	if err != nil && e.opts.RetryOnSessionExpire && neo4j.IsRetryable(err) {
		e.log.Debug("session expired, replaying query once", zap.Error(err))
		result, err = e.run(ctx, query, params)
	}
	return result, err
}

func (e *BoltExecutor) run(ctx context.Context, query string, params map[string]any) (*Result, error) {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: e.opts.Database})
	defer session.Close(ctx)

	start := time.Now()
	cursor, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, e.remap(err)
	}
	out := &Result{}
	for cursor.Next(ctx) {
		record := cursor.Record()
		if out.Columns == nil {
			out.Columns = record.Keys
		}
		row := make([]any, len(record.Values))
		for i, v := range record.Values {
			row[i] = fromDriverValue(v)
		}
		out.Rows = append(out.Rows, row)
	}
	if err := cursor.Err(); err != nil {
		return nil, e.remap(err)
	}
	if out.Columns == nil {
		if keys, err := cursor.Keys(); err == nil {
			out.Columns = keys
		}
	}

	elapsed := time.Since(start)
	fields := []zap.Field{
		zap.String("query", query),
		zap.Int("params", len(params)),
		zap.Duration("took", elapsed),
	}
	if e.opts.SlowQueryThreshold > 0 && elapsed > e.opts.SlowQueryThreshold {
		e.log.Warn("slow query", fields...)
	} else {
		e.log.Debug("query", fields...)
	}
	return out, nil
}

func (e *BoltExecutor) remap(err error) error {
	var ne *neo4j.Neo4jError
	if errors.As(err, &ne) {
		return remapConstraintError(ne.Code, ne.Msg, err, e.opts.HandleUnique)
	}
	return err
}

// detectIdentity probes the server version to decide between id() and
// elementId().
func (e *BoltExecutor) detectIdentity(ctx context.Context) IdentityFunc {
	res, err := e.run(ctx, "CALL dbms.components() YIELD versions RETURN versions[0]", nil)
	if err != nil || len(res.Rows) == 0 {
		return FuncElementID
	}
	version, _ := res.Rows[0][0].(string)
	major, _, _ := strings.Cut(version, ".")
	if n, err := strconv.Atoi(major); err == nil && n < 5 {
		return FuncID
	}
	return FuncElementID
}

// fromDriverValue converts driver graph types into this package's raw types,
// descending into lists and maps. Primitives pass through untouched.
func fromDriverValue(v any) any {
	switch val := v.(type) {
	case neo4j.Node:
		return fromDriverNode(val)
	case neo4j.Relationship:
		return fromDriverRelationship(val)
	case neo4j.Path:
		path := Path{}
		for _, n := range val.Nodes {
			path.Nodes = append(path.Nodes, fromDriverNode(n))
		}
		for _, r := range val.Relationships {
			path.Relationships = append(path.Relationships, fromDriverRelationship(r))
		}
		return path
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromDriverValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = fromDriverValue(item)
		}
		return out
	default:
		return v
	}
}

func fromDriverNode(n neo4j.Node) Node {
	return Node{ElementID: n.ElementId, Labels: n.Labels, Props: n.Props}
}

func fromDriverRelationship(r neo4j.Relationship) Relationship {
	return Relationship{
		ElementID:      r.ElementId,
		Type:           r.Type,
		StartElementID: r.StartElementId,
		EndElementID:   r.EndElementId,
		Props:          r.Props,
	}
}
