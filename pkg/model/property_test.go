package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringProperty(t *testing.T) {
	p := String("name", Required(), Unique())
	assert.True(t, p.Required)
	assert.True(t, p.Unique)
	assert.Equal(t, "name", p.DBName)

	v, err := p.Deflate("espresso")
	require.NoError(t, err)
	assert.Equal(t, "espresso", v)

	_, err = p.Deflate(42)
	assert.Error(t, err)
}

func TestIntPropertyCoercion(t *testing.T) {
	p := Int("price")

	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"int", 3, 3},
		{"int64", int64(7), 7},
		{"float64", 2.0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := p.Deflate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}

	_, err := p.Deflate("nope")
	assert.Error(t, err)
}

func TestDateTimeRoundTrip(t *testing.T) {
	p := DateTime("created")
	at := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

	stored, err := p.Deflate(at)
	require.NoError(t, err)
	epoch, ok := stored.(float64)
	require.True(t, ok)
	assert.InDelta(t, float64(at.Unix()), epoch, 0.001)

	back, err := p.Inflate(stored)
	require.NoError(t, err)
	assert.True(t, at.Equal(back.(time.Time)))
}

func TestJSONProperty(t *testing.T) {
	p := JSON("meta")

	stored, err := p.Deflate(map[string]any{"roast": "dark"})
	require.NoError(t, err)
	assert.Equal(t, `{"roast":"dark"}`, stored)

	back, err := p.Inflate(stored)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"roast": "dark"}, back)
}

func TestUniqueIDDefault(t *testing.T) {
	p := UniqueID("uid")
	require.NotNil(t, p.Default)
	assert.True(t, p.Unique)

	a := p.Default().(string)
	b := p.Default().(string)
	assert.Len(t, a, 32)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}

func TestArrayOfDeflatesElements(t *testing.T) {
	p := ArrayOf(Int("scores"))
	assert.True(t, p.Array)

	v, err := p.Deflate([]int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, v)

	_, err = p.Deflate([]any{"bad"})
	assert.Error(t, err)
}

func TestVectorProperty(t *testing.T) {
	p := Vector("embedding", 1024, Similarity("euclidean"))
	assert.Equal(t, 1024, p.VectorDim)
	assert.Equal(t, "euclidean", p.VectorSimilarity)

	v, err := p.Deflate([]any{1, 2.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5}, v)
}
