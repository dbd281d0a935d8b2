package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotStorage(t *testing.T) {
	ctx := context.Background()
	s := NewSlotStorage()

	_, found, err := s.Load(ctx, "inventory-storage")
	require.NoError(t, err)
	assert.False(t, found)

	val := []byte(`{"version":1,"inventoryItems":[]}`)
	require.NoError(t, s.Save(ctx, "inventory-storage", val))
	val[0] = 'X' // callers may reuse their buffer

	got, found, err := s.Load(ctx, "inventory-storage")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"version":1,"inventoryItems":[]}`, string(got))

	boom := errors.New("boom")
	s.FailSaves(boom)
	assert.Equal(t, boom, s.Save(ctx, "inventory-storage", []byte("{}")))
	s.FailSaves(nil)
	assert.NoError(t, s.Save(ctx, "inventory-storage", []byte("{}")))
}
