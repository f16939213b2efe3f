package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryServiceExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryService()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", payload{Name: "a", Count: 1}, time.Second))

	var got payload
	require.NoError(t, m.Get(ctx, "k", &got))
	assert.Equal(t, payload{Name: "a", Count: 1}, got)
	assert.True(t, m.Exists(ctx, "k"))

	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, m.Get(ctx, "k", &got), ErrCacheMiss)
	assert.False(t, m.Exists(ctx, "k"))
}

func TestMemoryServiceDeletePattern(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryService()

	require.NoError(t, m.Set(ctx, "ticketly:events:list:page:1:limit:10", 1, 0))
	require.NoError(t, m.Set(ctx, "ticketly:events:list:page:2:limit:10", 2, 0))
	require.NoError(t, m.Set(ctx, "ticketly:events:detail:uuid:x", 3, 0))

	require.NoError(t, m.DeletePattern(ctx, "ticketly:events:list*"))

	assert.False(t, m.Exists(ctx, "ticketly:events:list:page:1:limit:10"))
	assert.False(t, m.Exists(ctx, "ticketly:events:list:page:2:limit:10"))
	assert.True(t, m.Exists(ctx, "ticketly:events:detail:uuid:x"))
}

func TestMemoryServiceGetOrSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryService()
	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return payload{Name: "fetched", Count: calls}, nil
	}

	var first, second payload
	require.NoError(t, m.GetOrSet(ctx, "k", time.Minute, fetch, &first))
	require.NoError(t, m.GetOrSet(ctx, "k", time.Minute, fetch, &second))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	err := m.GetOrSet(ctx, "other", time.Minute, func() (interface{}, error) {
		return nil, errors.New("boom")
	}, &first)
	assert.Error(t, err)
}
