package sqltool

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConnections: 2,
		AcquireTimeout: 200 * time.Millisecond,
		DSN:            ":memory:",
		DriverName:     "sqlite3",
	}
}

func TestPool_Acquire_CreatesUpToMax(t *testing.T) {
	p := NewPool(testPoolConfig())
	ctx := context.Background()

	c1, err := p.Acquire(ctx)
	require.NoError(t, err)
	c2, err := p.Acquire(ctx)
	require.NoError(t, err)

	assert.Equal(t, Stats{Created: 2, Free: 0, Busy: 2}, p.Stats())

	p.Release(c1, true)
	p.Release(c2, true)
	assert.Equal(t, Stats{Created: 2, Free: 2, Busy: 0}, p.Stats())
}

func TestPool_Acquire_ExhaustedReturnsErrAfterTimeout(t *testing.T) {
	p := NewPool(testPoolConfig())
	ctx := context.Background()

	c1, err := p.Acquire(ctx)
	require.NoError(t, err)
	c2, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer func() {
		p.Release(c1, true)
		p.Release(c2, true)
	}()

	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestPool_Release_UnhealthyFreesSlot(t *testing.T) {
	p := NewPool(testPoolConfig())
	ctx := context.Background()

	c1, err := p.Acquire(ctx)
	require.NoError(t, err)
	p.Release(c1, false)

	assert.Equal(t, Stats{Created: 0, Free: 0, Busy: 0}, p.Stats())

	c2, err := p.Acquire(ctx)
	require.NoError(t, err)
	p.Release(c2, true)
}

func TestPool_CloseAll_RejectsFurtherAcquires(t *testing.T) {
	p := NewPool(testPoolConfig())
	ctx := context.Background()

	c1, err := p.Acquire(ctx)
	require.NoError(t, err)
	p.Release(c1, true)

	p.CloseAll()

	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, ErrPoolClosed)
}
