package delegate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoke/convoke/store"
)

func TestDomainRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewDomainRegistry(store.NewInMemoryStore(), nil)

	t.Run("RegisterAndGet", func(t *testing.T) {
		err := reg.Register(ctx, Domain{
			Name:     "finance",
			AgentID:  "finance-agent",
			Keywords: []string{"Stock", "share", "ticker"},
			Skills:   []string{"finance"},
		})
		require.NoError(t, err)

		d, ok, err := reg.Get(ctx, "finance")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "finance-agent", d.AgentID)
		// keywords normalize to lowercase
		assert.Equal(t, []string{"stock", "share", "ticker"}, d.Keywords)
		assert.Equal(t, []string{"finance"}, d.Skills)
	})

	t.Run("GetUnknown", func(t *testing.T) {
		_, ok, err := reg.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("AllSortedByName", func(t *testing.T) {
		require.NoError(t, reg.Register(ctx, Domain{Name: "weather", AgentID: "weather-agent"}))
		require.NoError(t, reg.Register(ctx, Domain{Name: "general", AgentID: "general-agent"}))

		all, err := reg.All(ctx)
		require.NoError(t, err)
		var names []string
		for _, d := range all {
			names = append(names, d.Name)
		}
		assert.Equal(t, []string{"finance", "general", "weather"}, names)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, reg.Remove(ctx, "weather"))
		_, ok, err := reg.Get(ctx, "weather")
		require.NoError(t, err)
		assert.False(t, ok)

		all, err := reg.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("RejectsEmptyName", func(t *testing.T) {
		assert.Error(t, reg.Register(ctx, Domain{AgentID: "a"}))
		assert.Error(t, reg.Register(ctx, Domain{Name: "x"}))
	})
}
