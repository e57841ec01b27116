package catalog

import (
	"testing"

	"github.com/h2overflow/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := MustDefault()

	items := c.List()
	require.Len(t, items, 6)
	for i, def := range items {
		assert.Equal(t, i+1, def.ID)
	}

	shower, err := c.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 5.0, shower.SavedWater)

	hands, err := c.Get(6)
	require.NoError(t, err)
	assert.Equal(t, 0.5, hands.SavedWater)
}

func TestGetUnknown(t *testing.T) {
	_, err := MustDefault().Get(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListIsACopy(t *testing.T) {
	c := MustDefault()
	items := c.List()
	items[0].SavedWater = 1000

	def, err := c.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, def.SavedWater)
}

func TestNewOrdersByID(t *testing.T) {
	c, err := New([]types.ActivityDefinition{
		{ID: 3, Name: "c", SavedWater: 1},
		{ID: 1, Name: "a", SavedWater: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.List()[0].ID)
}

func TestNewRejectsInvalid(t *testing.T) {
	cases := map[string][]types.ActivityDefinition{
		"zero id":       {{ID: 0, Name: "x", SavedWater: 1}},
		"empty name":    {{ID: 1, Name: " ", SavedWater: 1}},
		"no savings":    {{ID: 1, Name: "x", SavedWater: 0}},
		"duplicate ids": {{ID: 1, Name: "x", SavedWater: 1}, {ID: 1, Name: "y", SavedWater: 2}},
	}
	for name, defs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(defs)
			assert.Error(t, err)
		})
	}
}
