package cypher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/orneryd/nornogm/pkg/model"
)

const (
	operatorIn        = "IN"
	operatorIsNull    = "IS NULL"
	operatorIsNotNull = "IS NOT NULL"
	operatorRegex     = "=~"

	regexInsensitive = "(?i)"
)

// operatorTable maps filter-key suffixes to their comparison tokens.
var operatorTable = map[string]string{
	"lt":     "<",
	"gt":     ">",
	"lte":    "<=",
	"gte":    ">=",
	"ne":     "<>",
	"in":     operatorIn,
	"isnull": operatorIsNull,
	"regex":  operatorRegex,
	"exact":  "=",
}

// Pattern templates for the regex-family operators; all of them render
// through the regex-match operator. Every template except iregex
// regex-escapes the value first.
var stringRegexTemplates = map[string]string{
	"iexact":      regexInsensitive + "%s",
	"contains":    ".*%s.*",
	"icontains":   regexInsensitive + ".*%s.*",
	"startswith":  "%s.*",
	"istartswith": regexInsensitive + "%s.*",
	"endswith":    ".*%s",
	"iendswith":   regexInsensitive + ".*%s",
}

var regexTemplates = func() map[string]string {
	m := map[string]string{"iregex": regexInsensitive + "%s"}
	for k, v := range stringRegexTemplates {
		m[k] = v
	}
	return m
}()

func isOperatorSuffix(s string) bool {
	if _, ok := operatorTable[s]; ok {
		return true
	}
	_, ok := regexTemplates[s]
	return ok
}

// splitPathKey splits a dotted filter key into its segments. Double
// underscores separate traversal hops and the trailing operator; a pipe
// separates the final hop from a relationship property.
func splitPathKey(key string) []string {
	var parts []string
	for _, chunk := range strings.Split(key, "|") {
		parts = append(parts, strings.Split(chunk, "__")...)
	}
	return parts
}

// filterCondition is the translated form of one leaf filter: the
// traversal path it applies to (empty for root properties), the final
// database-facing property name, the comparison token, and the deflated
// parameter value.
type filterCondition struct {
	path     string // dotted traversal path, "" when on the source class
	relProp  bool   // property lives on the relationship of the last hop
	prop     string // database-facing property name
	operator string
	value    any
	hasValue bool
	arrayIn  bool
}

// translateFilter resolves one dotted filter key against a class,
// walking relationship hops through the registry, peeling a trailing
// operator suffix, and deflating the value through the leaf property.
// Pure with respect to the builder: no identifiers are allocated here.
func translateFilter(reg *model.Registry, class *model.Class, key string, value any) (filterCondition, error) {
	cond := filterCondition{operator: "", relProp: strings.Contains(key, "|")}

	parts := splitPathKey(key)
	current := class
	var relModel *model.Class
	var pathParts []string
	leaf := ""

	for i, part := range parts {
		if def, ok := current.Relationship(part); ok {
			target, err := def.Target(reg)
			if err != nil {
				return cond, err
			}
			pathParts = append(pathParts, part)
			current = target
			relModel = def.Model
			continue
		}
		if cond.relProp && relModel != nil {
			if _, _, ok := relModel.Property(part); ok {
				leaf = part
				continue
			}
		}
		if _, _, ok := current.Property(part); ok {
			leaf = part
			continue
		}
		if isOperatorSuffix(part) && i == len(parts)-1 {
			cond.operator = part
			continue
		}
		return cond, &model.NoSuchPropertyError{Class: class, Property: part}
	}
	if leaf == "" {
		return cond, fmt.Errorf("badly formed filter, no property found in %q", key)
	}

	propClass := current
	if cond.relProp && relModel != nil {
		propClass = relModel
	}
	prop, _, ok := propClass.Property(leaf)
	if !ok {
		return cond, &model.NoSuchPropertyError{Class: propClass, Property: leaf}
	}

	cond.path = strings.Join(pathParts, "__")
	cond.prop = prop.DBName

	return applyOperator(cond, prop, key, value)
}

// applyOperator resolves the operator suffix into a comparison token and
// deflated value, handling the enumerated special cases.
func applyOperator(cond filterCondition, prop *model.Property, key string, value any) (filterCondition, error) {
	if cond.operator == "" {
		deflated, err := prop.Deflate(value)
		if err != nil {
			return cond, err
		}
		cond.operator = "="
		cond.value = deflated
		cond.hasValue = true
		return cond, nil
	}

	if template, ok := regexTemplates[cond.operator]; ok {
		deflated, err := prop.Deflate(value)
		if err != nil {
			return cond, err
		}
		s, isString := deflated.(string)
		if !isString {
			return cond, fmt.Errorf("must be a string value for %s", key)
		}
		if _, escape := stringRegexTemplates[cond.operator]; escape {
			s = regexp.QuoteMeta(s)
		}
		cond.operator = operatorRegex
		cond.value = fmt.Sprintf(template, s)
		cond.hasValue = true
		return cond, nil
	}

	token := operatorTable[cond.operator]
	switch token {
	case operatorIsNull:
		b, isBool := value.(bool)
		if !isBool {
			return cond, fmt.Errorf("value must be a bool for isnull operation on %s", key)
		}
		if b {
			cond.operator = operatorIsNull
		} else {
			cond.operator = operatorIsNotNull
		}
		return cond, nil
	case operatorIn:
		items, err := asSlice(value)
		if err != nil {
			return cond, fmt.Errorf("value must be a slice for IN operation %s=%v", key, value)
		}
		cond.operator = operatorIn
		cond.hasValue = true
		if prop.Array {
			// Element-wise containment: a direct IN would compare the
			// whole stored list against the given set.
			deflated, err := prop.Deflate(value)
			if err != nil {
				return cond, err
			}
			cond.arrayIn = true
			cond.value = deflated
			return cond, nil
		}
		deflated := make([]any, len(items))
		for i, item := range items {
			v, err := prop.Deflate(item)
			if err != nil {
				return cond, err
			}
			deflated[i] = v
		}
		cond.value = deflated
		return cond, nil
	default:
		deflated, err := prop.Deflate(value)
		if err != nil {
			return cond, err
		}
		cond.operator = token
		cond.value = deflated
		cond.hasValue = true
		return cond, nil
	}
}

func asSlice(value any) ([]any, error) {
	switch t := value.(type) {
	case []any:
		return t, nil
	case []string:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = v
		}
		return out, nil
	case []int:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = v
		}
		return out, nil
	case []int64:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = v
		}
		return out, nil
	case []float64:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a slice: %T", value)
	}
}
