package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestNewSet_Defaults(t *testing.T) {
	t.Parallel()

	set, err := NewSet(map[string]map[string]Options{
		"blog": {"posts": {}},
	})
	require.NoError(t, err)

	m, ok := set.Get("blog", "posts")
	require.True(t, ok)
	assert.Equal(t, "blog", m.Database)
	assert.Equal(t, "posts", m.Table)
	assert.Equal(t, "blog", m.Index, "index defaults to the database name")
	assert.Equal(t, "posts", m.Type, "type defaults to the table name")
	assert.True(t, m.Backfill, "backfill defaults to true")
}

func TestNewSet_Overrides(t *testing.T) {
	t.Parallel()

	set, err := NewSet(map[string]map[string]Options{
		"blog": {
			"comments": {
				Backfill: boolPtr(false),
				Index:    "talk",
				Type:     "remark",
			},
		},
	})
	require.NoError(t, err)

	m, ok := set.Get("blog", "comments")
	require.True(t, ok)
	assert.Equal(t, "talk", m.Index)
	assert.Equal(t, "remark", m.Type)
	assert.False(t, m.Backfill)
}

func TestNewSet_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewSet(nil)
	assert.Error(t, err, "empty set")

	_, err = NewSet(map[string]map[string]Options{"": {"posts": {}}})
	assert.Error(t, err, "empty database name")

	_, err = NewSet(map[string]map[string]Options{"blog": {"": {}}})
	assert.Error(t, err, "empty table name")
}

func TestSet_AllOrderedAndLen(t *testing.T) {
	t.Parallel()

	set, err := NewSet(map[string]map[string]Options{
		"blog": {"posts": {}, "comments": {}},
		"auth": {"users": {}},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())

	all := set.All()
	require.Len(t, all, 3)
	assert.Equal(t, "auth", all[0].Database)
	assert.Equal(t, "comments", all[1].Table)
	assert.Equal(t, "posts", all[2].Table)
}

func TestSet_GetMissing(t *testing.T) {
	t.Parallel()

	set, err := NewSet(map[string]map[string]Options{"blog": {"posts": {}}})
	require.NoError(t, err)

	_, ok := set.Get("blog", "missing")
	assert.False(t, ok)
}

func TestMapping_String(t *testing.T) {
	t.Parallel()

	m := Mapping{Database: "blog", Table: "posts", Index: "blog", Type: "posts", Backfill: true}
	assert.Equal(t, "Mapping(blog.posts,backfill)", m.String())

	m = Mapping{Database: "blog", Table: "posts", Index: "talk", Type: "remark"}
	assert.Equal(t, "Mapping(blog.posts,index=talk,type=remark)", m.String())
}
