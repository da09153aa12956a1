package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseElementID(t *testing.T) {
	tests := []struct {
		name      string
		fn        IdentityFunc
		elementID string
		want      any
	}{
		{"elementId keeps full string", FuncElementID, "4:deadbeef:17", "4:deadbeef:17"},
		{"id extracts numeric tail", FuncID, "4:deadbeef:17", int64(17)},
		{"id falls back on non-numeric tail", FuncID, "not-an-element-id", "not-an-element-id"},
		{"id handles bare number", FuncID, "42", int64(42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn.ParseElementID(tt.elementID))
		})
	}
}

func TestRemapConstraintError(t *testing.T) {
	cause := errors.New("server said no")

	t.Run("unrelated code passes through", func(t *testing.T) {
		err := remapConstraintError("Neo.ClientError.Statement.SyntaxError", "bad query", cause, true)
		assert.Same(t, cause, err)
	})

	t.Run("constraint code wraps", func(t *testing.T) {
		err := remapConstraintError(constraintViolationCode, "property clash", cause, true)
		var ce *ConstraintError
		require.ErrorAs(t, err, &ce)
		assert.False(t, ce.Unique)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("uniqueness conflict flagged when opted in", func(t *testing.T) {
		msg := "Node(7) already exists with label `Coffee` and property `name` = 'java'"
		err := remapConstraintError(constraintViolationCode, msg, cause, true)
		assert.True(t, IsUniqueViolation(err))
	})

	t.Run("uniqueness conflict unflagged without opt-in", func(t *testing.T) {
		msg := "Node(7) already exists with label `Coffee` and property `name` = 'java'"
		err := remapConstraintError(constraintViolationCode, msg, cause, false)
		assert.False(t, IsUniqueViolation(err))

		var ce *ConstraintError
		require.ErrorAs(t, err, &ce)
	})
}
