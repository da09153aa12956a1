package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PropertyKind identifies the storage type of a declared property.
type PropertyKind int

const (
	KindString PropertyKind = iota
	KindInt
	KindFloat
	KindBool
	KindDateTime
	KindJSON
	KindAlias
	KindVector
)

// Property describes one declared scalar property on a model class: its
// database-facing name, flags, default, and the deflate/inflate pair that
// converts between application values and stored values.
//
// The query compiler treats deflate and inflate as opaque; both must be
// idempotent with respect to already-converted values.
type Property struct {
	Name     string
	DBName   string
	Kind     PropertyKind
	Required bool
	Unique   bool
	Indexed  bool
	Array    bool

	// AliasTo names the property this one forwards to (alias kind only).
	AliasTo string

	// Default produces a value for unset properties, nil when none.
	Default func() any

	// VectorDim and VectorSimilarity declare a vector index (vector kind).
	VectorDim        int
	VectorSimilarity string

	deflate func(any) (any, error)
	inflate func(any) (any, error)
}

// PropertyOption mutates a property at declaration time.
type PropertyOption func(*Property)

// Required marks the property as mandatory; required properties form the
// merge key for get-or-create operations.
func Required() PropertyOption { return func(p *Property) { p.Required = true } }

// Unique requests a uniqueness constraint at schema-install time.
func Unique() PropertyOption { return func(p *Property) { p.Unique = true } }

// Indexed requests a range index at schema-install time.
func Indexed() PropertyOption { return func(p *Property) { p.Indexed = true } }

// DBName overrides the database-facing property name.
func DBName(name string) PropertyOption { return func(p *Property) { p.DBName = name } }

// Default sets a static default value.
func Default(v any) PropertyOption {
	return func(p *Property) { p.Default = func() any { return v } }
}

// DefaultFunc sets a generated default value.
func DefaultFunc(f func() any) PropertyOption {
	return func(p *Property) { p.Default = f }
}

func newProperty(name string, kind PropertyKind, opts ...PropertyOption) *Property {
	p := &Property{Name: name, DBName: name, Kind: kind}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// String declares a string property.
func String(name string, opts ...PropertyOption) *Property {
	p := newProperty(name, KindString, opts...)
	p.deflate = func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	}
	p.inflate = p.deflate
	return p
}

// Int declares an integer property, stored as int64.
func Int(name string, opts ...PropertyOption) *Property {
	p := newProperty(name, KindInt, opts...)
	p.deflate = func(v any) (any, error) { return toInt64(v) }
	p.inflate = p.deflate
	return p
}

// Float declares a float property, stored as float64.
func Float(name string, opts ...PropertyOption) *Property {
	p := newProperty(name, KindFloat, opts...)
	p.deflate = func(v any) (any, error) { return toFloat64(v) }
	p.inflate = p.deflate
	return p
}

// Bool declares a boolean property.
func Bool(name string, opts ...PropertyOption) *Property {
	p := newProperty(name, KindBool, opts...)
	p.deflate = func(v any) (any, error) {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		return b, nil
	}
	p.inflate = p.deflate
	return p
}

// DateTime declares a timestamp property stored as epoch seconds
// (fractional), inflated back to a UTC time.Time.
func DateTime(name string, opts ...PropertyOption) *Property {
	p := newProperty(name, KindDateTime, opts...)
	p.deflate = func(v any) (any, error) {
		switch t := v.(type) {
		case time.Time:
			return float64(t.UnixNano()) / float64(time.Second), nil
		case float64:
			return t, nil
		default:
			return nil, fmt.Errorf("expected time.Time, got %T", v)
		}
	}
	p.inflate = func(v any) (any, error) {
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case float64:
			sec := int64(t)
			nsec := int64((t - float64(sec)) * float64(time.Second))
			return time.Unix(sec, nsec).UTC(), nil
		case int64:
			return time.Unix(t, 0).UTC(), nil
		default:
			return nil, fmt.Errorf("cannot inflate %T to time.Time", v)
		}
	}
	return p
}

// JSON declares a property holding an arbitrary JSON-serializable value,
// stored as its JSON text.
func JSON(name string, opts ...PropertyOption) *Property {
	p := newProperty(name, KindJSON, opts...)
	p.deflate = func(v any) (any, error) {
		if s, ok := v.(string); ok && json.Valid([]byte(s)) {
			return s, nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	}
	p.inflate = func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return p
}

// UniqueID declares a unique string identifier defaulting to a random
// uuid4 hex string.
func UniqueID(name string, opts ...PropertyOption) *Property {
	p := String(name, opts...)
	p.Unique = true
	if p.Default == nil {
		p.Default = func() any {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		}
	}
	return p
}

// Alias declares a read/write alias forwarding to another property.
func Alias(name, to string) *Property {
	p := newProperty(name, KindAlias)
	p.AliasTo = to
	return p
}

// ArrayOf wraps a scalar property declaration into an array property with
// element-wise deflate/inflate. Filtering an array property with the "in"
// operator generates element-membership predicates.
func ArrayOf(inner *Property) *Property {
	p := *inner
	p.Array = true
	elemDeflate, elemInflate := inner.deflate, inner.inflate
	p.deflate = mapElements(elemDeflate)
	p.inflate = mapElements(elemInflate)
	return &p
}

// Vector declares a float-slice property with a vector index of the given
// dimension. Similarity defaults to cosine.
func Vector(name string, dim int, opts ...PropertyOption) *Property {
	p := newProperty(name, KindVector, opts...)
	p.VectorDim = dim
	if p.VectorSimilarity == "" {
		p.VectorSimilarity = "cosine"
	}
	p.deflate = func(v any) (any, error) {
		switch vec := v.(type) {
		case []float64:
			return vec, nil
		case []any:
			out := make([]float64, len(vec))
			for i, item := range vec {
				f, err := toFloat64(item)
				if err != nil {
					return nil, err
				}
				out[i] = f.(float64)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("expected []float64, got %T", v)
		}
	}
	p.inflate = p.deflate
	return p
}

// Similarity overrides the vector index similarity function.
func Similarity(fn string) PropertyOption {
	return func(p *Property) { p.VectorSimilarity = fn }
}

// Deflate converts an application value to its stored form.
func (p *Property) Deflate(v any) (any, error) {
	if p.deflate == nil {
		return v, nil
	}
	out, err := p.deflate(v)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Inflate converts a stored value back to its application form.
func (p *Property) Inflate(v any) (any, error) {
	if p.inflate == nil {
		return v, nil
	}
	return p.inflate(v)
}

func mapElements(f func(any) (any, error)) func(any) (any, error) {
	return func(v any) (any, error) {
		if f == nil {
			return v, nil
		}
		items, ok := v.([]any)
		if !ok {
			// Typed slices arrive from user code; normalize the common ones.
			switch t := v.(type) {
			case []string:
				items = make([]any, len(t))
				for i, s := range t {
					items[i] = s
				}
			case []int:
				items = make([]any, len(t))
				for i, n := range t {
					items[i] = n
				}
			case []float64:
				items = make([]any, len(t))
				for i, n := range t {
					items[i] = n
				}
			default:
				return nil, fmt.Errorf("expected slice, got %T", v)
			}
		}
		out := make([]any, len(items))
		for i, item := range items {
			converted, err := f(item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	}
}

func toInt64(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
}

func toFloat64(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return nil, fmt.Errorf("expected float, got %T", v)
	}
}
