package nornogm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornogm/pkg/db"
	"github.com/orneryd/nornogm/pkg/model"
)

func TestInstallLabelsNodeClass(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	menu := model.NewClass("Menu",
		model.String("slug", model.Unique()),
		model.Int("rank", model.Indexed()),
		model.Vector("embedding", 3),
	)

	require.NoError(t, e.gdb.InstallLabels(ctx, menu))
	require.Len(t, e.stub.Calls, 3)

	assert.Equal(t,
		"CREATE CONSTRAINT constraint_unique_Menu_slug FOR (n:Menu) REQUIRE n.slug IS UNIQUE",
		e.stub.Calls[0].Query)
	assert.Equal(t,
		"CREATE INDEX index_Menu_rank FOR (n:Menu) ON (n.rank)",
		e.stub.Calls[1].Query)
	assert.Equal(t,
		"CREATE VECTOR INDEX vector_index_Menu_embedding FOR (n:Menu) ON n.embedding "+
			"OPTIONS { indexConfig: { `vector.dimensions`: 3, `vector.similarity_function`: 'cosine' } }",
		e.stub.Calls[2].Query)
}

func TestInstallLabelsRelationshipClass(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	supplies := model.NewRelationshipClass("SUPPLIES",
		model.DateTime("since", model.Indexed()),
	)

	require.NoError(t, e.gdb.InstallLabels(ctx, supplies))
	require.Len(t, e.stub.Calls, 1)

	assert.Equal(t,
		"CREATE INDEX index_SUPPLIES_since FOR ()-[r:SUPPLIES]-() ON (r.since)",
		e.stub.Calls[0].Query)
}

func TestInstallLabelsUniqueID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	badge := model.NewClass("Badge", model.UniqueID("uid"))

	require.NoError(t, e.gdb.InstallLabels(ctx, badge))
	require.Len(t, e.stub.Calls, 1)
	assert.Equal(t,
		"CREATE CONSTRAINT constraint_unique_Badge_uid FOR (n:Badge) REQUIRE n.uid IS UNIQUE",
		e.stub.Calls[0].Query)
}

func TestListIndexes(t *testing.T) {
	e := newEnv(t)

	e.stub.Results = []*db.Result{{
		Columns: []string{"name", "type", "entityType", "labelsOrTypes", "properties"},
		Rows: [][]any{
			{"index_Coffee_price", "RANGE", "NODE", []any{"Coffee"}, []any{"price"}},
			{"index_343aff4e", "LOOKUP", "NODE", nil, nil},
		},
	}}

	indexes, err := e.gdb.ListIndexes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "SHOW INDEXES", e.stub.LastQuery())
	require.Len(t, indexes, 2)
	assert.Equal(t, IndexInfo{
		Name:          "index_Coffee_price",
		Type:          "RANGE",
		EntityType:    "NODE",
		LabelsOrTypes: []string{"Coffee"},
		Properties:    []string{"price"},
	}, indexes[0])
	assert.Equal(t, "LOOKUP", indexes[1].Type)
}

func TestListConstraints(t *testing.T) {
	e := newEnv(t)

	e.stub.Results = []*db.Result{{
		Columns: []string{"name", "type", "labelsOrTypes", "properties"},
		Rows: [][]any{
			{"constraint_unique_Coffee_name", "UNIQUENESS", []any{"Coffee"}, []any{"name"}},
		},
	}}

	constraints, err := e.gdb.ListConstraints(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "SHOW CONSTRAINTS", e.stub.LastQuery())
	require.Len(t, constraints, 1)
	assert.Equal(t, "constraint_unique_Coffee_name", constraints[0].Name)
}

func TestRemoveAllLabels(t *testing.T) {
	e := newEnv(t)

	e.stub.Results = []*db.Result{
		{
			Columns: []string{"name", "type"},
			Rows:    [][]any{{"constraint_unique_Coffee_name", "UNIQUENESS"}},
		},
		{}, // drop constraint
		{
			Columns: []string{"name", "type"},
			Rows: [][]any{
				{"index_Coffee_price", "RANGE"},
				{"index_343aff4e", "LOOKUP"},
			},
		},
	}

	require.NoError(t, e.gdb.RemoveAllLabels(context.Background()))

	queries := make([]string, 0, len(e.stub.Calls))
	for _, call := range e.stub.Calls {
		queries = append(queries, call.Query)
	}
	assert.Equal(t, []string{
		"SHOW CONSTRAINTS",
		"DROP CONSTRAINT constraint_unique_Coffee_name",
		"SHOW INDEXES",
		"DROP INDEX index_Coffee_price",
	}, queries)
}

func TestClearDatabase(t *testing.T) {
	e := newEnv(t)

	require.NoError(t, e.gdb.ClearDatabase(context.Background(), ClearOptions{}))

	require.Len(t, e.stub.Calls, 1)
	assert.Equal(t,
		"MATCH (a) CALL { WITH a DETACH DELETE a } IN TRANSACTIONS OF 5000 rows",
		e.stub.LastQuery())
}

func TestClearDatabaseWithSchema(t *testing.T) {
	e := newEnv(t)

	err := e.gdb.ClearDatabase(context.Background(), ClearOptions{
		DropConstraints: true,
		DropIndexes:     true,
	})
	require.NoError(t, err)

	queries := make([]string, 0, len(e.stub.Calls))
	for _, call := range e.stub.Calls {
		queries = append(queries, call.Query)
	}
	assert.Equal(t, []string{
		"MATCH (a) CALL { WITH a DETACH DELETE a } IN TRANSACTIONS OF 5000 rows",
		"SHOW CONSTRAINTS",
		"SHOW INDEXES",
	}, queries)
}
