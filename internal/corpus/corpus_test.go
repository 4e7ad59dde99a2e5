package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("indexes pages in sorted order", func(t *testing.T) {
		t.Parallel()

		c, err := New(map[string][]string{
			"3.html": {"1.html"},
			"1.html": {"2.html", "3.html"},
			"2.html": {},
		})
		require.NoError(t, err)

		assert.Equal(t, 3, c.Len())
		assert.Equal(t, []string{"1.html", "2.html", "3.html"}, c.Pages())
		assert.Equal(t, 3, c.EdgeCount())

		i, ok := c.Index("2.html")
		require.True(t, ok)
		assert.Equal(t, 1, i)
		assert.Equal(t, "2.html", c.Page(i))
	})

	t.Run("collapses duplicate links", func(t *testing.T) {
		t.Parallel()

		c, err := New(map[string][]string{
			"a": {"b", "b", "b"},
			"b": {"a"},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"b"}, c.Links("a"))
		assert.Equal(t, 2, c.EdgeCount())
	})

	t.Run("builds reverse adjacency", func(t *testing.T) {
		t.Parallel()

		c, err := New(map[string][]string{
			"a": {"c"},
			"b": {"c"},
			"c": {},
		})
		require.NoError(t, err)

		ci, _ := c.Index("c")
		assert.Equal(t, []int{0, 1}, c.In(ci))
		assert.True(t, c.IsDangling(ci))
		assert.Equal(t, []string{"c"}, c.Dangling())
		assert.Equal(t, 1, c.OutDegree(0))
	})

	t.Run("rejects unknown target", func(t *testing.T) {
		t.Parallel()

		_, err := New(map[string][]string{"a": {"missing"}})
		require.ErrorIs(t, err, ErrUnknownPage)
	})

	t.Run("rejects self link", func(t *testing.T) {
		t.Parallel()

		_, err := New(map[string][]string{"a": {"a"}})
		require.ErrorIs(t, err, ErrSelfLink)
	})

	t.Run("rejects empty page name", func(t *testing.T) {
		t.Parallel()

		_, err := New(map[string][]string{"": {}})
		require.ErrorIs(t, err, ErrEmptyPage)
	})

	t.Run("empty mapping yields empty corpus", func(t *testing.T) {
		t.Parallel()

		c, err := New(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, c.Len())
		assert.Equal(t, 0, c.Components())
	})
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	clean := Sanitize(map[string][]string{
		"a": {"a", "b", "external.html", ""},
		"b": {},
		"":  {"a"},
	})

	assert.Equal(t, map[string][]string{
		"a": {"b"},
		"b": {},
	}, clean)

	_, err := New(clean)
	assert.NoError(t, err)
}

func TestLinksUnknownPage(t *testing.T) {
	t.Parallel()

	c, err := New(map[string][]string{"a": {}})
	require.NoError(t, err)
	assert.Nil(t, c.Links("zzz"))

	_, ok := c.Index("zzz")
	assert.False(t, ok)
}

func TestMapRoundTrip(t *testing.T) {
	t.Parallel()

	links := map[string][]string{
		"1.html": {"2.html"},
		"2.html": {"1.html", "3.html"},
		"3.html": {},
	}
	c, err := New(links)
	require.NoError(t, err)

	assert.Equal(t, links, c.Map())
}

func TestDigest(t *testing.T) {
	t.Parallel()

	a, err := New(map[string][]string{"x": {"y", "z"}, "y": {}, "z": {"x"}})
	require.NoError(t, err)
	b, err := New(map[string][]string{"z": {"x"}, "x": {"z", "y"}, "y": {}})
	require.NoError(t, err)
	c, err := New(map[string][]string{"x": {"y"}, "y": {}, "z": {"x"}})
	require.NoError(t, err)

	assert.Equal(t, a.Digest(), b.Digest())
	assert.NotEqual(t, a.Digest(), c.Digest())
	assert.Len(t, a.Digest(), 64)
}

func TestComponents(t *testing.T) {
	t.Parallel()

	ring, err := New(map[string][]string{
		"1": {"2"},
		"2": {"3"},
		"3": {"1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ring.Components())

	isolated, err := New(map[string][]string{"1": {}, "2": {}, "3": {}})
	require.NoError(t, err)
	assert.Equal(t, 3, isolated.Components())

	g := ring.Graph()
	assert.Equal(t, 3, g.Nodes().Len())
	assert.True(t, g.HasEdgeFromTo(0, 1))
	assert.False(t, g.HasEdgeFromTo(1, 0))
}
