package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoralCatalog(t *testing.T) {
	c := Coral()

	assert.Equal(t, 13, c.Len())

	idx, ok := c.Index("c_algae_macro_or_leaves")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = c.Index("c_sponge_barrel")
	require.True(t, ok)
	assert.Equal(t, 13, idx)

	name, ok := c.Name(0)
	require.True(t, ok)
	assert.Equal(t, BackgroundName, name)

	_, ok = c.Name(14)
	assert.False(t, ok)
	assert.False(t, c.Contains("c_unknown"))
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name  string
		names []string
	}{
		{"Empty", nil},
		{"Blank name", []string{"a", ""}},
		{"Whitespace", []string{"hard coral"}},
		{"Separator", []string{"a;b"}},
		{"Duplicate", []string{"a", "b", "a"}},
		{"Reserved", []string{BackgroundName}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.names...)
			assert.Error(t, err)
		})
	}
}

func TestNew_TooMany(t *testing.T) {
	names := make([]string, MaxSubstrates+1)
	for i := range names {
		names[i] = string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	_, err := New(names...)
	assert.Error(t, err)

	_, err = New(names[:MaxSubstrates]...)
	assert.NoError(t, err)
}

func TestSubstratesIsCopy(t *testing.T) {
	c := MustNew("a", "b")

	subs := c.Substrates()
	subs[0].Name = "mutated"

	assert.Equal(t, []string{"a", "b"}, c.Names())
}

func TestEqual(t *testing.T) {
	assert.True(t, MustNew("a", "b").Equal(MustNew("a", "b")))
	assert.False(t, MustNew("a", "b").Equal(MustNew("b", "a")))
	assert.False(t, MustNew("a").Equal(MustNew("a", "b")))
	assert.False(t, MustNew("a").Equal(nil))
}
