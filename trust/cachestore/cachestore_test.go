package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemCacheStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, time.Hour)

	v, err := cs.Get(ctx, "access", "u100")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(cs.Set(ctx, "access", "u100", `{"canPost":true}`))
	v, err = cs.Get(ctx, "access", "u100")
	assert.NoError(err)
	assert.Equal(`{"canPost":true}`, v)

	// keys are namespaced
	v, err = cs.Get(ctx, "other", "u100")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(cs.Purge(ctx, "access", "u100"))
	v, err = cs.Get(ctx, "access", "u100")
	assert.NoError(err)
	assert.Equal("", v)
}

func TestMemCacheStoreTTL(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, 50*time.Millisecond)
	assert.NoError(cs.Set(ctx, "access", "u100", "val"))
	time.Sleep(100 * time.Millisecond)
	v, err := cs.Get(ctx, "access", "u100")
	assert.NoError(err)
	assert.Equal("", v)
}
