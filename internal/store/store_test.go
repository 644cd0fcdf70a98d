package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserKey(t *testing.T) {
	tests := []struct {
		prefix, user, want string
	}{
		{PrefixInventory, "u1", "userBeanInventory_u1"},
		{PrefixDevices, "", "userDevices_guest"},
		{PrefixRecords, "  ", "coffeeBeans_guest"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, UserKey(tt.prefix, tt.user))
		})
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var got []string
	ok, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", []string{"a", "b"}))
	ok, err = m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, m.Remove(ctx, "k"))
	ok, _ = m.Get(ctx, "k", &got)
	assert.False(t, ok)
}

func TestMemory_DecodeError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", "a string"))

	var dst []int
	ok, err := m.Get(ctx, "k", &dst)
	assert.True(t, ok)
	assert.Error(t, err)
}
