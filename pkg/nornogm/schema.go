package nornogm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/orneryd/nornogm/pkg/model"
)

// IndexInfo describes one index or constraint reported by the server.
type IndexInfo struct {
	Name          string
	Type          string
	EntityType    string
	LabelsOrTypes []string
	Properties    []string
}

// InstallLabels creates the constraints and indexes a class's property
// declarations call for: a unique constraint per Unique property, a range
// index per Indexed property and a vector index per vector property.
// Relationship classes install against their relation type.
func (d *DB) InstallLabels(ctx context.Context, classes ...*model.Class) error {
	for _, c := range classes {
		if err := d.installClass(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) installClass(ctx context.Context, c *model.Class) error {
	label := c.Label()
	rel := c.Kind() == model.RelationshipClass

	// Entity pattern and property prefix differ between node labels and
	// relation types.
	entity := fmt.Sprintf("(n:%s)", label)
	ident := "n"
	if rel {
		entity = fmt.Sprintf("()-[r:%s]-()", label)
		ident = "r"
	}

	for _, p := range c.Properties() {
		if p.Kind == model.KindAlias {
			continue
		}
		var statements []string
		if p.Unique {
			statements = append(statements, fmt.Sprintf(
				"CREATE CONSTRAINT constraint_unique_%s_%s FOR %s REQUIRE %s.%s IS UNIQUE",
				label, p.DBName, entity, ident, p.DBName))
		}
		if p.Indexed {
			statements = append(statements, fmt.Sprintf(
				"CREATE INDEX index_%s_%s FOR %s ON (%s.%s)",
				label, p.DBName, entity, ident, p.DBName))
		}
		if p.Kind == model.KindVector {
			statements = append(statements, fmt.Sprintf(
				"CREATE VECTOR INDEX vector_index_%s_%s FOR %s ON %s.%s OPTIONS { indexConfig: { `vector.dimensions`: %d, `vector.similarity_function`: '%s' } }",
				label, p.DBName, entity, ident, p.DBName, p.VectorDim, p.VectorSimilarity))
		}
		for _, stmt := range statements {
			d.log.Debug("installing schema", zap.String("class", c.Name()), zap.String("statement", stmt))
			if _, err := d.exec.Execute(ctx, stmt, nil); err != nil {
				return fmt.Errorf("install %q: %w", c.Name(), err)
			}
		}
	}
	return nil
}

// ListIndexes returns every index the server reports.
func (d *DB) ListIndexes(ctx context.Context) ([]IndexInfo, error) {
	return d.showInfo(ctx, "SHOW INDEXES")
}

// ListConstraints returns every constraint the server reports.
func (d *DB) ListConstraints(ctx context.Context) ([]IndexInfo, error) {
	return d.showInfo(ctx, "SHOW CONSTRAINTS")
}

func (d *DB) showInfo(ctx context.Context, query string) ([]IndexInfo, error) {
	res, err := d.exec.Execute(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	byName := map[string]int{}
	for i, col := range res.Columns {
		byName[col] = i
	}
	cell := func(row []any, col string) any {
		i, ok := byName[col]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}
	out := make([]IndexInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		info := IndexInfo{
			Name:          asString(cell(row, "name")),
			Type:          asString(cell(row, "type")),
			EntityType:    asString(cell(row, "entityType")),
			LabelsOrTypes: asStrings(cell(row, "labelsOrTypes")),
			Properties:    asStrings(cell(row, "properties")),
		}
		out = append(out, info)
	}
	return out, nil
}

// DropConstraints removes every constraint from the database.
func (d *DB) DropConstraints(ctx context.Context) error {
	constraints, err := d.ListConstraints(ctx)
	if err != nil {
		return err
	}
	for _, c := range constraints {
		if _, err := d.exec.Execute(ctx, "DROP CONSTRAINT "+c.Name, nil); err != nil {
			return err
		}
	}
	return nil
}

// DropIndexes removes every index except the server's own lookup
// indexes.
func (d *DB) DropIndexes(ctx context.Context) error {
	indexes, err := d.ListIndexes(ctx)
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		if idx.Type == "LOOKUP" {
			continue
		}
		if _, err := d.exec.Execute(ctx, "DROP INDEX "+idx.Name, nil); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAllLabels drops every constraint, then every index.
func (d *DB) RemoveAllLabels(ctx context.Context) error {
	if err := d.DropConstraints(ctx); err != nil {
		return err
	}
	return d.DropIndexes(ctx)
}

// ClearOptions extends ClearDatabase beyond data removal.
type ClearOptions struct {
	DropConstraints bool
	DropIndexes     bool
}

// ClearDatabase deletes every node and relationship in transactional
// batches, optionally dropping constraints and indexes afterwards.
func (d *DB) ClearDatabase(ctx context.Context, opts ClearOptions) error {
	const query = "MATCH (a) CALL { WITH a DETACH DELETE a } IN TRANSACTIONS OF 5000 rows"
	if _, err := d.exec.Execute(ctx, query, nil); err != nil {
		return err
	}
	if opts.DropConstraints {
		if err := d.DropConstraints(ctx); err != nil {
			return err
		}
	}
	if opts.DropIndexes {
		if err := d.DropIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
