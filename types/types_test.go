package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/dbal/dbalerr"
	"github.com/syssam/dbal/types"
)

func TestLookup(t *testing.T) {
	t.Run("known type", func(t *testing.T) {
		got, err := types.Lookup(types.Integer)
		assert.NoError(t, err)
		assert.Equal(t, types.Integer, got)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := types.Lookup(types.Type("nonsense"))
		assert.Error(t, err)
		assert.True(t, dbalerr.IsTypesError(err))
	})
}
