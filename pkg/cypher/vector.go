package cypher

import (
	"fmt"

	"github.com/orneryd/nornogm/pkg/model"
)

// VectorFilter selects the TopK nodes nearest to Candidate according to
// the vector index on the named property. Registered through
// NodeSet.Nearest, it becomes the query's preamble: the bound candidate
// set plus a score companion value.
type VectorFilter struct {
	TopK      int
	Attribute string
	Candidate []float64
}

// vectorQuery is the resolved form stored on the AST.
type vectorQuery struct {
	indexName string
	ident     string
	topK      int
	param     string
}

// VectorIndexName is the installer's naming scheme for vector indexes;
// the query side derives the same name instead of looking it up.
func VectorIndexName(class *model.Class, attribute string) string {
	return fmt.Sprintf("vector_index_%s_%s", class.Label(), attribute)
}

func (b *Builder) buildVectorQuery(f *VectorFilter, class *model.Class) error {
	prop, _, ok := class.Property(f.Attribute)
	if !ok {
		return &model.NoSuchPropertyError{Class: class, Property: f.Attribute}
	}
	if prop.VectorDim == 0 {
		return fmt.Errorf("property %q on class %q is not declared with a vector index", f.Attribute, class.Name())
	}
	topK := f.TopK
	if topK <= 0 {
		topK = 10
	}
	ident := lowerIdent(class.Label())
	param := b.registerPlaceholder("vector")
	b.params[param] = f.Candidate

	b.ast.vector = &vectorQuery{
		indexName: VectorIndexName(class, f.Attribute),
		ident:     ident,
		topK:      topK,
		param:     param,
	}
	b.ast.returnClause = fmt.Sprintf("%s, score", ident)
	b.ast.resultClass = class
	return nil
}

func (v *vectorQuery) render() string {
	return fmt.Sprintf(
		`CALL () { CALL db.index.vector.queryNodes("%s", %d, $%s) YIELD node AS %s, score RETURN %s, score } WITH %s, score`,
		v.indexName, v.topK, v.param, v.ident, v.ident, v.ident,
	)
}
