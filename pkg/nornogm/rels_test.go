package nornogm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornogm/pkg/db"
	"github.com/orneryd/nornogm/pkg/model"
)

func relResult(column string, rels ...db.Relationship) *db.Result {
	res := &db.Result{Columns: []string{column}}
	for _, r := range rels {
		res.Rows = append(res.Rows, []any{r})
	}
	return res
}

func countResult(n int64) *db.Result {
	return &db.Result{Columns: []string{"count"}, Rows: [][]any{{n}}}
}

func TestManagerUnknownRelationship(t *testing.T) {
	e := newEnv(t)

	n := e.savedNode(e.coffee, "4:db:7", nil)
	_, err := e.gdb.Manager(n, "producers")

	var relErr *model.NoSuchRelationshipError
	require.ErrorAs(t, err, &relErr)
	assert.Equal(t, "producers", relErr.Name)
}

func TestConnectWithRelationshipModel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.coffee, "4:db:7", nil)
	them := e.savedNode(e.supplier, "4:db:8", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	e.stub.Results = []*db.Result{relResult("r", db.Relationship{
		ElementID:      "5:db:1",
		Type:           "SUPPLIES",
		StartElementID: "4:db:8",
		EndElementID:   "4:db:7",
		Props:          map[string]any{"since": float64(1000)},
	})}

	rel, err := m.Connect(ctx, them, map[string]any{"since": float64(1000)})
	require.NoError(t, err)
	require.NotNil(t, rel)

	assert.Equal(t,
		"MATCH (them), (us) WHERE elementId(them)=$them and elementId(us)=$self "+
			"MERGE (us)<-[r:`SUPPLIES` {since: $since}]-(them) RETURN r",
		e.stub.LastQuery())
	assert.Equal(t, map[string]any{
		"since": float64(1000),
		"them":  "4:db:8",
		"self":  "4:db:7",
	}, e.stub.LastParams())

	assert.Equal(t, "SUPPLIES", rel.Type())
	since, _ := rel.Get("since")
	assert.Equal(t, time.Unix(1000, 0).UTC(), since)
}

func TestConnectNilPropertySetAfterMerge(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.coffee, "4:db:7", nil)
	them := e.savedNode(e.supplier, "4:db:8", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	e.stub.Results = []*db.Result{relResult("r", db.Relationship{Type: "SUPPLIES"})}

	_, err = m.Connect(ctx, them, map[string]any{"since": nil})
	require.NoError(t, err)

	assert.Equal(t,
		"MATCH (them), (us) WHERE elementId(them)=$them and elementId(us)=$self "+
			"MERGE (us)<-[r:`SUPPLIES`]-(them) ON CREATE SET r.since=$since ON MATCH SET r.since=$since RETURN r",
		e.stub.LastQuery())
	assert.Nil(t, e.stub.LastParams()["since"])
}

func TestConnectWithoutModelRejectsProperties(t *testing.T) {
	e := newEnv(t)

	us := e.savedNode(e.coffee, "4:db:7", nil)
	them := e.savedNode(e.species, "4:db:8", nil)
	m, err := e.gdb.Manager(us, "species")
	require.NoError(t, err)

	_, err = m.Connect(context.Background(), them, map[string]any{"weight": 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relationship model")
	assert.Empty(t, e.stub.Calls)
}

func TestConnectWithoutModelMerges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.coffee, "4:db:7", nil)
	them := e.savedNode(e.species, "4:db:8", nil)
	m, err := e.gdb.Manager(us, "species")
	require.NoError(t, err)

	rel, err := m.Connect(ctx, them, nil)
	require.NoError(t, err)
	assert.Nil(t, rel)

	assert.Equal(t,
		"MATCH (them), (us) WHERE elementId(them)=$them and elementId(us)=$self "+
			"MERGE (us)-[r:`OF_SPECIES`]->(them)",
		e.stub.LastQuery())
}

func TestConnectWrongTargetClass(t *testing.T) {
	e := newEnv(t)

	us := e.savedNode(e.coffee, "4:db:7", nil)
	wrong := e.savedNode(e.species, "4:db:8", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	_, err = m.Connect(context.Background(), wrong, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expects a "Supplier" node`)
}

func TestConnectCardinalityOneAlreadyConnected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.barista, "4:db:1", nil)
	them := e.savedNode(e.machine, "4:db:2", nil)
	m, err := e.gdb.Manager(us, "machine")
	require.NoError(t, err)

	e.stub.Results = []*db.Result{countResult(1)}

	_, err = m.Connect(ctx, them, nil)
	var violation *model.CardinalityViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, 1, violation.Count)
	// Only the count query ran; nothing was merged.
	require.Len(t, e.stub.Calls, 1)
}

func TestConnectCardinalityOneFirstConnection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.barista, "4:db:1", nil)
	them := e.savedNode(e.machine, "4:db:2", nil)
	m, err := e.gdb.Manager(us, "machine")
	require.NoError(t, err)

	e.stub.Results = []*db.Result{countResult(0)}

	rel, err := m.Connect(ctx, them, nil)
	require.NoError(t, err)
	assert.Nil(t, rel)
	require.Len(t, e.stub.Calls, 2)
	assert.Equal(t,
		"MATCH (them), (us) WHERE elementId(them)=$them and elementId(us)=$self "+
			"MERGE (us)-[r:`USES`]->(them)",
		e.stub.LastQuery())
}

func TestRelationshipFetch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.coffee, "4:db:7", nil)
	them := e.savedNode(e.supplier, "4:db:8", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	e.stub.Results = []*db.Result{relResult("r", db.Relationship{
		Type:  "SUPPLIES",
		Props: map[string]any{"since": float64(5)},
	})}

	rel, err := m.Relationship(ctx, them)
	require.NoError(t, err)
	require.NotNil(t, rel)

	assert.Equal(t,
		"MATCH (us)<-[r:`SUPPLIES`]-(them) WHERE elementId(them)=$them and elementId(us)=$self RETURN r LIMIT 1",
		e.stub.LastQuery())
	assert.Equal(t, map[string]any{"them": "4:db:8", "self": "4:db:7"}, e.stub.LastParams())
}

func TestRelationshipFetchNone(t *testing.T) {
	e := newEnv(t)

	us := e.savedNode(e.coffee, "4:db:7", nil)
	them := e.savedNode(e.supplier, "4:db:8", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	rel, err := m.Relationship(context.Background(), them)
	require.NoError(t, err)
	assert.Nil(t, rel)

	connected, err := m.IsConnected(context.Background(), them)
	require.NoError(t, err)
	assert.False(t, connected)
}

func TestAllRelationships(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.coffee, "4:db:7", nil)
	them := e.savedNode(e.supplier, "4:db:8", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	e.stub.Results = []*db.Result{relResult("r",
		db.Relationship{Type: "SUPPLIES", Props: map[string]any{"since": float64(1)}},
		db.Relationship{Type: "SUPPLIES", Props: map[string]any{"since": float64(2)}},
	)}

	rels, err := m.AllRelationships(ctx, them)
	require.NoError(t, err)
	require.Len(t, rels, 2)

	assert.Equal(t,
		"MATCH (us)<-[r:`SUPPLIES`]-(them) WHERE elementId(them)=$them and elementId(us)=$self RETURN r",
		e.stub.LastQuery())
}

func TestDisconnect(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.coffee, "4:db:7", nil)
	them := e.savedNode(e.supplier, "4:db:8", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	require.NoError(t, m.Disconnect(ctx, them))

	assert.Equal(t,
		"MATCH (a), (b) WHERE elementId(a)=$self and elementId(b)=$them MATCH (a)<-[r:`SUPPLIES`]-(b) DELETE r",
		e.stub.LastQuery())
	assert.Equal(t, map[string]any{"self": "4:db:7", "them": "4:db:8"}, e.stub.LastParams())
}

func TestDisconnectCardinalityOneRejected(t *testing.T) {
	e := newEnv(t)

	us := e.savedNode(e.barista, "4:db:1", nil)
	them := e.savedNode(e.machine, "4:db:2", nil)
	m, err := e.gdb.Manager(us, "machine")
	require.NoError(t, err)

	err = m.Disconnect(context.Background(), them)
	var violation *model.CardinalityViolationError
	require.ErrorAs(t, err, &violation)
	assert.Empty(t, e.stub.Calls)
}

func TestDisconnectOneOrMoreKeepsLast(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.barista, "4:db:1", nil)
	them := e.savedNode(e.machine, "4:db:2", nil)
	m, err := e.gdb.Manager(us, "beans")
	require.NoError(t, err)

	e.stub.Results = []*db.Result{countResult(1)}

	err = m.Disconnect(ctx, them)
	var violation *model.CardinalityViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, 1, violation.Count)
}

func TestDisconnectAll(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.coffee, "4:db:7", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	require.NoError(t, m.DisconnectAll(ctx))

	assert.Equal(t,
		"MATCH (a) WHERE elementId(a)=$self MATCH (a)<-[r:`SUPPLIES`]-(b:Supplier) DELETE r",
		e.stub.LastQuery())
}

func TestDisconnectAllCardinalityRejected(t *testing.T) {
	e := newEnv(t)

	us := e.savedNode(e.barista, "4:db:1", nil)
	for _, relName := range []string{"machine", "beans"} {
		m, err := e.gdb.Manager(us, relName)
		require.NoError(t, err)

		err = m.DisconnectAll(context.Background())
		var violation *model.CardinalityViolationError
		require.ErrorAs(t, err, &violation)
	}
	assert.Empty(t, e.stub.Calls)
}

func TestReconnect(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.coffee, "4:db:7", nil)
	old := e.savedNode(e.supplier, "4:db:8", nil)
	fresh := e.savedNode(e.supplier, "4:db:9", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	e.stub.Results = []*db.Result{relResult("r", db.Relationship{
		Type:  "SUPPLIES",
		Props: map[string]any{"since": float64(1000)},
	})}

	require.NoError(t, m.Reconnect(ctx, old, fresh))
	require.Len(t, e.stub.Calls, 2)

	assert.Equal(t,
		"MATCH (us), (old) WHERE elementId(us)=$self and elementId(old)=$old MATCH (us)<-[r:`SUPPLIES`]-(old) RETURN r",
		e.stub.Calls[0].Query)
	assert.Equal(t,
		"MATCH (us), (old), (new) WHERE elementId(us)=$self and elementId(old)=$old and elementId(new)=$new "+
			"MATCH (us)<-[r:`SUPPLIES`]-(old) MERGE (us)<-[r2:`SUPPLIES`]-(new) SET r2.since = r.since WITH r DELETE r",
		e.stub.Calls[1].Query)
	assert.Equal(t, map[string]any{
		"self": "4:db:7",
		"old":  "4:db:8",
		"new":  "4:db:9",
	}, e.stub.LastParams())
}

func TestReconnectNotConnected(t *testing.T) {
	e := newEnv(t)

	us := e.savedNode(e.coffee, "4:db:7", nil)
	old := e.savedNode(e.supplier, "4:db:8", nil)
	fresh := e.savedNode(e.supplier, "4:db:9", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	err = m.Reconnect(context.Background(), old, fresh)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestReconnectSameNodeIsNoop(t *testing.T) {
	e := newEnv(t)

	us := e.savedNode(e.coffee, "4:db:7", nil)
	same := e.savedNode(e.supplier, "4:db:8", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	require.NoError(t, m.Reconnect(context.Background(), same, same))
	assert.Empty(t, e.stub.Calls)
}

func TestReplace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.coffee, "4:db:7", nil)
	them := e.savedNode(e.supplier, "4:db:8", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	e.stub.Results = []*db.Result{
		{}, // disconnect all
		relResult("r", db.Relationship{Type: "SUPPLIES"}),
	}

	rel, err := m.Replace(ctx, them, nil)
	require.NoError(t, err)
	require.NotNil(t, rel)
	require.Len(t, e.stub.Calls, 2)
	assert.Contains(t, e.stub.Calls[0].Query, "DELETE r")
	assert.Contains(t, e.stub.Calls[1].Query, "MERGE (us)<-[r:`SUPPLIES`]-(them)")
}

func TestSingleCardinalityOne(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.barista, "4:db:1", nil)
	m, err := e.gdb.Manager(us, "machine")
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		e.stub.Results = nil

		_, err := m.Single(ctx)
		var violation *model.CardinalityViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, 0, violation.Count)
	})

	t.Run("present", func(t *testing.T) {
		e.stub.Results = []*db.Result{nodeResult("machine", db.Node{
			ElementID: "4:db:2", Labels: []string{"Machine"}, Props: map[string]any{"name": "la marzocco"},
		})}

		node, err := m.Single(ctx)
		require.NoError(t, err)
		require.NotNil(t, node)
		name, _ := node.Get("name")
		assert.Equal(t, "la marzocco", name)
	})
}

func TestSingleZeroOrOneTooMany(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	us := e.savedNode(e.barista, "4:db:1", nil)
	m, err := e.gdb.Manager(us, "grinder")
	require.NoError(t, err)

	e.stub.Results = []*db.Result{nodeResult("machine",
		db.Node{ElementID: "4:db:2", Labels: []string{"Machine"}, Props: map[string]any{}},
		db.Node{ElementID: "4:db:3", Labels: []string{"Machine"}, Props: map[string]any{}},
	)}

	_, err = m.Single(ctx)
	var violation *model.CardinalityViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, 2, violation.Count)
}

func TestSingleUnconstrainedEmpty(t *testing.T) {
	e := newEnv(t)

	us := e.savedNode(e.coffee, "4:db:7", nil)
	m, err := e.gdb.Manager(us, "suppliers")
	require.NoError(t, err)

	node, err := m.Single(context.Background())
	require.NoError(t, err)
	assert.Nil(t, node)
}
