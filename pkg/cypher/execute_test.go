package cypher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornogm/pkg/db"
	"github.com/orneryd/nornogm/pkg/model"
)

func rawCoffee(id, name string) db.Node {
	return db.Node{ElementID: id, Labels: []string{"Coffee"}, Props: map[string]any{"name": name}}
}

func TestAllResolvesNodes(t *testing.T) {
	e := newEnv(t)
	e.stub.Results = []*db.Result{{
		Rows:    [][]any{{rawCoffee("4:x:1", "Java")}, {rawCoffee("4:x:2", "Espresso")}},
		Columns: []string{"coffee"},
	}}

	results, err := Nodes(e.runner, e.coffee).All(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, " MATCH (coffee:Coffee) RETURN coffee", e.stub.LastQuery())

	first, ok := results[0].(*model.Node)
	require.True(t, ok)
	name, _ := first.Get("name")
	assert.Equal(t, "Java", name)
	assert.Equal(t, "4:x:1", first.ElementID())
}

func TestAllKeepsWideRows(t *testing.T) {
	e := newEnv(t)
	supplier := db.Node{ElementID: "4:x:9", Labels: []string{"Supplier"}, Props: map[string]any{"name": "Sainsburys"}}
	e.stub.Results = []*db.Result{{
		Rows:    [][]any{{rawCoffee("4:x:1", "Java"), supplier}},
		Columns: []string{"coffee", "supplier_suppliers1"},
	}}

	results, err := Nodes(e.runner, e.coffee).FetchRelations("suppliers").All(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	row, ok := results[0].([]any)
	require.True(t, ok)
	assert.Len(t, row, 2)
}

func TestAllLazyWrapsIdentity(t *testing.T) {
	e := newEnv(t)
	e.stub.Results = []*db.Result{{
		Rows:    [][]any{{"4:x:1"}},
		Columns: []string{"elementId(coffee)"},
	}}

	results, err := Nodes(e.runner, e.coffee).AllLazy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, " MATCH (coffee:Coffee) RETURN elementId(coffee)", e.stub.LastQuery())
	assert.Equal(t, []any{"4:x:1"}, results)
}

func TestCount(t *testing.T) {
	e := newEnv(t)
	e.stub.Results = []*db.Result{{Rows: [][]any{{int64(3)}}, Columns: []string{"count(coffee)"}}}

	n, err := Nodes(e.runner, e.coffee).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, " MATCH (coffee:Coffee) WITH coffee RETURN count(coffee)", e.stub.LastQuery())
}

func TestCountPaginatesBeforeAggregation(t *testing.T) {
	e := newEnv(t)
	e.stub.Results = []*db.Result{{Rows: [][]any{{int64(2)}}, Columns: []string{"count(coffee)"}}}

	_, err := Nodes(e.runner, e.coffee).Skip(1).Limit(2).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, " MATCH (coffee:Coffee) WITH coffee SKIP 1 LIMIT 2 RETURN count(coffee)", e.stub.LastQuery())
}

func TestExists(t *testing.T) {
	e := newEnv(t)
	e.stub.Results = []*db.Result{{Rows: [][]any{{int64(0)}}, Columns: []string{"count(coffee)"}}}

	ok, err := Nodes(e.runner, e.coffee).Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContains(t *testing.T) {
	e := newEnv(t)
	node := model.NewNode(e.coffee, map[string]any{"name": "Java"})
	node.SetElementID("4:x:7")

	t.Run("matches by identity", func(t *testing.T) {
		e.stub.Results = []*db.Result{{Rows: [][]any{{int64(1)}}, Columns: []string{"count(coffee)"}}}
		ok, err := Nodes(e.runner, e.coffee).Contains(context.Background(), node)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t,
			" MATCH (coffee:Coffee) WHERE elementId(coffee) = $coffee_contains_1 WITH coffee RETURN count(coffee)",
			e.stub.LastQuery())
		assert.Equal(t, "4:x:7", e.stub.LastParams()["coffee_contains_1"])
	})

	t.Run("unsaved node is rejected", func(t *testing.T) {
		_, err := Nodes(e.runner, e.coffee).Contains(context.Background(), model.NewNode(e.coffee, nil))
		require.Error(t, err)
	})
}

func TestGet(t *testing.T) {
	e := newEnv(t)

	t.Run("single match", func(t *testing.T) {
		e.stub.Results = []*db.Result{{Rows: [][]any{{rawCoffee("4:x:1", "Java")}}, Columns: []string{"coffee"}}}
		node, err := Nodes(e.runner, e.coffee).Get(context.Background(), Where("name", "Java"))
		require.NoError(t, err)
		name, _ := node.Get("name")
		assert.Equal(t, "Java", name)
		// Get fetches two rows so ambiguity is detectable.
		assert.Contains(t, e.stub.LastQuery(), "LIMIT 2")
	})

	t.Run("no match", func(t *testing.T) {
		e.stub.Results = []*db.Result{{Columns: []string{"coffee"}}}
		_, err := Nodes(e.runner, e.coffee).Get(context.Background())
		var notFound *model.NotFoundError
		require.ErrorAs(t, err, &notFound)
	})

	t.Run("several matches", func(t *testing.T) {
		e.stub.Results = []*db.Result{{
			Rows:    [][]any{{rawCoffee("4:x:1", "Java")}, {rawCoffee("4:x:2", "Espresso")}},
			Columns: []string{"coffee"},
		}}
		_, err := Nodes(e.runner, e.coffee).Get(context.Background())
		var multiple *model.MultipleNodesReturnedError
		require.ErrorAs(t, err, &multiple)
	})

	t.Run("get or none swallows only not found", func(t *testing.T) {
		e.stub.Results = []*db.Result{{Columns: []string{"coffee"}}}
		node, err := Nodes(e.runner, e.coffee).GetOrNone(context.Background())
		require.NoError(t, err)
		assert.Nil(t, node)

		e.stub.Err = errors.New("boom")
		_, err = Nodes(e.runner, e.coffee).GetOrNone(context.Background())
		require.Error(t, err)
	})
}

func TestFirst(t *testing.T) {
	e := newEnv(t)

	t.Run("first match wins", func(t *testing.T) {
		e.stub.Results = []*db.Result{{Rows: [][]any{{rawCoffee("4:x:1", "Java")}}, Columns: []string{"coffee"}}}
		node, err := Nodes(e.runner, e.coffee).First(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "4:x:1", node.ElementID())
		assert.Contains(t, e.stub.LastQuery(), "LIMIT 1")
	})

	t.Run("first or none", func(t *testing.T) {
		e.stub.Results = []*db.Result{{Columns: []string{"coffee"}}}
		node, err := Nodes(e.runner, e.coffee).FirstOrNone(context.Background())
		require.NoError(t, err)
		assert.Nil(t, node)
	})
}

func TestResolveSubgraph(t *testing.T) {
	e := newEnv(t)

	t.Run("requires traversal paths", func(t *testing.T) {
		_, err := Nodes(e.runner, e.coffee).ResolveSubgraph(context.Background())
		require.Error(t, err)
		assert.Empty(t, e.stub.Calls, "the error must surface before execution")
	})

	t.Run("requires returned paths", func(t *testing.T) {
		_, err := Nodes(e.runner, e.coffee).
			TraverseRelations("suppliers").
			ResolveSubgraph(context.Background())
		require.Error(t, err)
	})

	t.Run("attaches traversed entities", func(t *testing.T) {
		supplier := db.Node{ElementID: "4:x:9", Labels: []string{"Supplier"}, Props: map[string]any{"name": "Sainsburys"}}
		rel := db.Relationship{
			ElementID: "5:x:3", Type: "SUPPLIES",
			StartElementID: "4:x:9", EndElementID: "4:x:1",
			Props: map[string]any{"since": float64(1000)},
		}
		e.stub.Results = []*db.Result{{
			Rows:    [][]any{{rawCoffee("4:x:1", "Java"), supplier, rel}},
			Columns: []string{"coffee", "supplier_suppliers1", "r1"},
		}}

		roots, err := Nodes(e.runner, e.coffee).FetchRelations("suppliers").ResolveSubgraph(context.Background())
		require.NoError(t, err)
		require.Len(t, roots, 1)

		root := roots[0]
		assert.Equal(t, "4:x:1", root.ElementID())

		attached, ok := root.Relations["suppliers"].(*model.Node)
		require.True(t, ok)
		name, _ := attached.Get("name")
		assert.Equal(t, "Sainsburys", name)

		attachedRel, ok := root.Relations["suppliers_relationship"].(*model.Relationship)
		require.True(t, ok)
		assert.Equal(t, "SUPPLIES", attachedRel.Type())
	})

	t.Run("flattens collected lists", func(t *testing.T) {
		s1 := db.Node{ElementID: "4:x:9", Labels: []string{"Supplier"}, Props: map[string]any{"name": "A"}}
		s2 := db.Node{ElementID: "4:x:10", Labels: []string{"Supplier"}, Props: map[string]any{"name": "B"}}
		e.stub.Results = []*db.Result{{
			Rows:    [][]any{{rawCoffee("4:x:1", "Java"), []any{[]any{s1, s2}}}},
			Columns: []string{"coffee", "supplier_suppliers1"},
		}}

		roots, err := Nodes(e.runner, e.coffee).FetchRelations("suppliers").ResolveSubgraph(context.Background())
		require.NoError(t, err)
		require.Len(t, roots, 1)

		attached, ok := roots[0].Relations["suppliers"].([]any)
		require.True(t, ok)
		assert.Len(t, attached, 2)
	})
}

func TestExecutorErrorPropagates(t *testing.T) {
	e := newEnv(t)
	e.stub.Err = errors.New("connection reset")

	_, err := Nodes(e.runner, e.coffee).All(context.Background())
	require.Error(t, err)
}
