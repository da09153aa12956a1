package cypher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornogm/pkg/model"
)

func TestTranslateFilter(t *testing.T) {
	e := newEnv(t)

	cases := []struct {
		name     string
		key      string
		value    any
		path     string
		relProp  bool
		prop     string
		operator string
		want     any
		arrayIn  bool
	}{
		{name: "default equality", key: "name", value: "Java", prop: "name", operator: "=", want: "Java"},
		{name: "alias resolves", key: "title", value: "Java", prop: "name", operator: "=", want: "Java"},
		{name: "lt", key: "price__lt", value: 3, prop: "price", operator: "<", want: int64(3)},
		{name: "gt", key: "price__gt", value: 3, prop: "price", operator: ">", want: int64(3)},
		{name: "lte", key: "price__lte", value: 3, prop: "price", operator: "<=", want: int64(3)},
		{name: "gte", key: "price__gte", value: 3, prop: "price", operator: ">=", want: int64(3)},
		{name: "ne", key: "price__ne", value: 3, prop: "price", operator: "<>", want: int64(3)},
		{name: "exact", key: "name__exact", value: "Java", prop: "name", operator: "=", want: "Java"},
		{name: "in", key: "price__in", value: []int{2, 3}, prop: "price", operator: "IN", want: []any{int64(2), int64(3)}},
		{
			name: "in on array property", key: "tags__in", value: []string{"dark"},
			prop: "tags", operator: "IN", want: []any{"dark"}, arrayIn: true,
		},
		{name: "regex passes through", key: "name__regex", value: ".*ja.*", prop: "name", operator: "=~", want: ".*ja.*"},
		{name: "iregex does not escape", key: "name__iregex", value: "j.a", prop: "name", operator: "=~", want: "(?i)j.a"},
		{name: "iexact", key: "name__iexact", value: "Java", prop: "name", operator: "=~", want: "(?i)Java"},
		{name: "contains escapes", key: "name__contains", value: "j.a", prop: "name", operator: "=~", want: `.*j\.a.*`},
		{name: "icontains", key: "name__icontains", value: "j.a", prop: "name", operator: "=~", want: `(?i).*j\.a.*`},
		{name: "startswith", key: "name__startswith", value: "Ja", prop: "name", operator: "=~", want: "Ja.*"},
		{name: "istartswith", key: "name__istartswith", value: "Ja", prop: "name", operator: "=~", want: "(?i)Ja.*"},
		{name: "endswith", key: "name__endswith", value: "va", prop: "name", operator: "=~", want: ".*va"},
		{name: "iendswith", key: "name__iendswith", value: "va", prop: "name", operator: "=~", want: "(?i).*va"},
		{name: "isnull true", key: "price__isnull", value: true, prop: "price", operator: "IS NULL"},
		{name: "isnull false", key: "price__isnull", value: false, prop: "price", operator: "IS NOT NULL"},
		{
			name: "traversed property", key: "suppliers__delivery_cost__gte", value: 2,
			path: "suppliers", prop: "delivery_cost", operator: ">=", want: int64(2),
		},
		{
			name: "relationship property", key: "suppliers|since__lt", value: time.Unix(1000, 0),
			path: "suppliers", relProp: true, prop: "since", operator: "<", want: float64(1000),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cond, err := translateFilter(e.reg, e.coffee, tc.key, tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.path, cond.path)
			assert.Equal(t, tc.relProp, cond.relProp)
			assert.Equal(t, tc.prop, cond.prop)
			assert.Equal(t, tc.operator, cond.operator)
			assert.Equal(t, tc.arrayIn, cond.arrayIn)
			if tc.want != nil {
				assert.Equal(t, tc.want, cond.value)
			}
		})
	}
}

func TestTranslateFilterErrors(t *testing.T) {
	e := newEnv(t)

	t.Run("unknown property", func(t *testing.T) {
		_, err := translateFilter(e.reg, e.coffee, "caffeine", true)
		var noProp *model.NoSuchPropertyError
		require.ErrorAs(t, err, &noProp)
	})

	t.Run("operator without property", func(t *testing.T) {
		_, err := translateFilter(e.reg, e.coffee, "gt", 1)
		require.Error(t, err)
	})

	t.Run("regex operator on non string", func(t *testing.T) {
		_, err := translateFilter(e.reg, e.coffee, "price__contains", 3)
		require.Error(t, err)
	})

	t.Run("isnull needs a bool", func(t *testing.T) {
		_, err := translateFilter(e.reg, e.coffee, "price__isnull", "yes")
		require.Error(t, err)
	})

	t.Run("in needs a slice", func(t *testing.T) {
		_, err := translateFilter(e.reg, e.coffee, "price__in", 3)
		require.Error(t, err)
	})

	t.Run("deflate failure propagates", func(t *testing.T) {
		_, err := translateFilter(e.reg, e.coffee, "name", 42)
		require.Error(t, err)
	})
}

func TestSplitPathKey(t *testing.T) {
	assert.Equal(t, []string{"name"}, splitPathKey("name"))
	assert.Equal(t, []string{"suppliers", "name"}, splitPathKey("suppliers__name"))
	assert.Equal(t, []string{"suppliers", "since", "lt"}, splitPathKey("suppliers|since__lt"))
}
