package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedHoldersDoNotBlockEachOther(t *testing.T) {
	gate := NewGate(time.Second, logger.NewNop())

	first, err := gate.Shared(context.Background())
	require.NoError(t, err)
	second, err := gate.Shared(context.Background())
	require.NoError(t, err)

	first()
	second()
}

func TestExclusiveWaitsForSharedHolders(t *testing.T) {
	gate := NewGate(0, logger.NewNop())

	release, err := gate.Shared(context.Background())
	require.NoError(t, err)

	acquired := make(chan func())
	go func() {
		releaseExclusive, err := gate.Exclusive(context.Background())
		if err == nil {
			acquired <- releaseExclusive
		}
	}()

	select {
	case <-acquired:
		t.Fatal("exclusive gate acquired while a mutation was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case releaseExclusive := <-acquired:
		releaseExclusive()
	case <-time.After(time.Second):
		t.Fatal("exclusive gate not acquired after mutation finished")
	}
}

func TestSharedTimesOutBehindExclusive(t *testing.T) {
	gate := NewGate(20*time.Millisecond, logger.NewNop())

	release, ok := gate.TryExclusive()
	require.True(t, ok)
	defer release()

	_, err := gate.Shared(context.Background())
	assert.True(t, errors.Is(err, ErrTimeout))

	_, ok = gate.TryExclusive()
	assert.False(t, ok)
}

func TestAcquireHonoursCancellation(t *testing.T) {
	gate := NewGate(0, logger.NewNop())

	release, err := gate.Exclusive(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = gate.Shared(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoubleReleaseIsHarmless(t *testing.T) {
	gate := NewGate(time.Second, logger.NewNop())

	release, err := gate.Exclusive(context.Background())
	require.NoError(t, err)
	release()
	release()

	again, ok := gate.TryExclusive()
	require.True(t, ok)
	again()
}
