package statuscache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wildwest-rp/stagecoach/internal/directory"
)

func TestEmptyCache(t *testing.T) {
	var c Cache

	_, _, ok := c.Get()
	assert.False(t, ok)
	assert.False(t, c.IsFresh(time.Now(), time.Minute))
}

func TestPutGet(t *testing.T) {
	var c Cache

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := directory.Status{Hostname: "Foo", CurrentPlayers: 5, MaxPlayers: 20, CapturedAt: at}
	c.Put(s)

	got, last, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, s, got)
	assert.Equal(t, at, last)
}

func TestIsFresh(t *testing.T) {
	var c Cache

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.Put(directory.Status{Hostname: "Foo", CapturedAt: at})

	window := 2 * time.Minute
	assert.True(t, c.IsFresh(at, window))
	assert.True(t, c.IsFresh(at.Add(90*time.Second), window))
	// Boundary: exactly one window old is no longer fresh
	assert.False(t, c.IsFresh(at.Add(window), window))
	assert.False(t, c.IsFresh(at.Add(time.Hour), window))
}

func TestStalenessIsNotEviction(t *testing.T) {
	var c Cache

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.Put(directory.Status{Hostname: "Foo", CapturedAt: at})

	// Long past the window the entry is stale but still readable
	assert.False(t, c.IsFresh(at.Add(24*time.Hour), 2*time.Minute))

	got, _, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, "Foo", got.Hostname)
}

func TestInvalidate(t *testing.T) {
	var c Cache

	at := time.Now()
	c.Put(directory.Status{Hostname: "Foo", CapturedAt: at})
	c.Invalidate()

	_, _, ok := c.Get()
	assert.False(t, ok)
	assert.False(t, c.IsFresh(at, time.Hour))
}
