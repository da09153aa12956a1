package cypher

import (
	"fmt"
	"strings"

	"github.com/orneryd/nornogm/pkg/model"
)

// nodeExpr is one endpoint of a relationship pattern: an identifier, an
// optional label, or a pre-rendered chained pattern used as the left-hand
// side when hops are chained.
type nodeExpr struct {
	ident    string
	label    string
	rendered string // non-empty for a chained pattern, used verbatim
}

func nodeIdent(ident, label string) nodeExpr { return nodeExpr{ident: ident, label: label} }

func chained(rendered string) nodeExpr { return nodeExpr{rendered: rendered} }

func (n nodeExpr) render() string {
	if n.rendered != "" {
		return n.rendered
	}
	if n.label != "" {
		return fmt.Sprintf("(%s:%s)", n.ident, n.label)
	}
	return fmt.Sprintf("(%s)", n.ident)
}

// relPattern is one relationship hop between two node expressions. It
// renders to text only at serialization time, which keeps the
// one-MATCH-per-pattern policy enforceable where patterns are collected
// rather than where they are concatenated.
type relPattern struct {
	lhs       nodeExpr
	rhs       nodeExpr
	ident     string
	relType   string // "" matches any direct relation, "*" any length
	direction model.Direction
	props     map[string]string // literal property matchers, rarely used
}

func (p relPattern) render() string {
	relDef := ""
	switch p.relType {
	case "":
	case "*":
		relDef = "[*]"
	default:
		propStr := ""
		if len(p.props) > 0 {
			pairs := make([]string, 0, len(p.props))
			for k, v := range p.props {
				pairs = append(pairs, fmt.Sprintf("%s: %s", k, v))
			}
			propStr = " {" + strings.Join(pairs, ", ") + "}"
		}
		relDef = fmt.Sprintf("[%s:`%s`%s]", p.ident, p.relType, propStr)
	}

	var arrow string
	switch p.direction {
	case model.Outgoing:
		arrow = fmt.Sprintf("-%s->", relDef)
	case model.Incoming:
		arrow = fmt.Sprintf("<-%s-", relDef)
	default:
		arrow = fmt.Sprintf("-%s-", relDef)
	}

	return p.lhs.render() + arrow + p.rhs.render()
}
