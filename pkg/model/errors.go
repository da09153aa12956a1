package model

import (
	"fmt"
	"strings"
)

// NodeClassNotDefinedError is returned when result resolution meets a node
// whose label set has no registered class. The message carries a dump of
// the registry taken at lookup time.
type NodeClassNotDefinedError struct {
	Labels   []string
	Database string
	dump     string
}

func (e *NodeClassNotDefinedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "node with labels {%s} does not resolve to any registered class", strings.Join(e.Labels, ", "))
	if e.Database != "" {
		fmt.Fprintf(&b, " (database %q)", e.Database)
	}
	b.WriteString("\nregistered classes:\n")
	b.WriteString(e.dump)
	return b.String()
}

// ClassAlreadyDefinedError is returned when two classes claim the same
// label set or relation type in the same registry scope.
type ClassAlreadyDefinedError struct {
	New      *Class
	Existing *Class
}

func (e *ClassAlreadyDefinedError) Error() string {
	return fmt.Sprintf("class %q conflicts with already registered class %q for the same shape",
		e.New.Name(), e.Existing.Name())
}

// ClassNotRegisteredError is returned when a lazily named relationship
// target is resolved before its class is registered.
type ClassNotRegisteredError struct {
	Name string
}

func (e *ClassNotRegisteredError) Error() string {
	return fmt.Sprintf("relationship target class %q is not registered", e.Name)
}

// NoSuchPropertyError is returned when a property name does not exist on
// a class, during deflation or filter-path translation.
type NoSuchPropertyError struct {
	Class    *Class
	Property string
}

func (e *NoSuchPropertyError) Error() string {
	return fmt.Sprintf("class %q has no property %q", e.Class.Name(), e.Property)
}

// NoSuchRelationshipError is returned when a traversal path segment names
// a relationship the class does not declare.
type NoSuchRelationshipError struct {
	Class *Class
	Name  string
}

func (e *NoSuchRelationshipError) Error() string {
	return fmt.Sprintf("class %q has no relationship %q", e.Class.Name(), e.Name)
}

// RequiredPropertyError is returned when deflation finds a required
// property unset with no default.
type RequiredPropertyError struct {
	Class    *Class
	Property string
}

func (e *RequiredPropertyError) Error() string {
	return fmt.Sprintf("required property %q of class %q is not set", e.Property, e.Class.Name())
}

// DeflateError wraps a per-property conversion failure on the way to the
// database.
type DeflateError struct {
	Class    *Class
	Property string
	Value    any
	cause    error
}

func (e *DeflateError) Error() string {
	return fmt.Sprintf("cannot deflate %q on class %q: %v", e.Property, e.Class.Name(), e.cause)
}

func (e *DeflateError) Unwrap() error { return e.cause }

// InflateError wraps a per-property conversion failure on the way back
// from the database.
type InflateError struct {
	Class    *Class
	Property string
	Value    any
	cause    error
}

func (e *InflateError) Error() string {
	return fmt.Sprintf("cannot inflate %q on class %q from %T: %v", e.Property, e.Class.Name(), e.Value, e.cause)
}

func (e *InflateError) Unwrap() error { return e.cause }

// CardinalityViolationError is returned when a relationship declared with
// a One or OneOrMore cardinality has no related node, or a connect would
// exceed ZeroOrOne/One.
type CardinalityViolationError struct {
	Def   *RelationshipDef
	Count int
}

func (e *CardinalityViolationError) Error() string {
	return fmt.Sprintf("relationship %q on class %q violates its cardinality (%d related nodes)",
		e.Def.Name, e.Def.Owner().Name(), e.Count)
}

// NotFoundError is returned by single-result lookups that matched no node.
type NotFoundError struct {
	Class *Class
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %q node matches the given query", e.Class.Name())
}

// MultipleNodesReturnedError is returned by single-result lookups that
// matched more than one node.
type MultipleNodesReturnedError struct {
	Class *Class
}

func (e *MultipleNodesReturnedError) Error() string {
	return fmt.Sprintf("more than one %q node matches the given query", e.Class.Name())
}
