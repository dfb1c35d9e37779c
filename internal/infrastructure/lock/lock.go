package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// exclusiveWeight is larger than any realistic number of concurrent writers
const exclusiveWeight = 1 << 30

// ErrTimeout is returned when the gate cannot be entered in time
var ErrTimeout = errors.New("timed out waiting for store gate")

// Gate lets any number of mutations share the store while keeping
// destructive resets exclusive. Waiters are served in arrival order, so a
// pending reset holds back mutations that arrive after it.
type Gate struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *logger.Logger
}

// NewGate creates a gate. A zero timeout waits as long as the context allows.
func NewGate(timeout time.Duration, log *logger.Logger) *Gate {
	return &Gate{
		sem:     semaphore.NewWeighted(exclusiveWeight),
		timeout: timeout,
		logger:  log.Named("gate"),
	}
}

// Shared enters the gate alongside other mutations
func (g *Gate) Shared(ctx context.Context) (func(), error) {
	return g.acquire(ctx, 1, "shared")
}

// Exclusive enters the gate once every other holder has left
func (g *Gate) Exclusive(ctx context.Context) (func(), error) {
	return g.acquire(ctx, exclusiveWeight, "exclusive")
}

// TryExclusive enters the gate exclusively without waiting
func (g *Gate) TryExclusive() (func(), bool) {
	if !g.sem.TryAcquire(exclusiveWeight) {
		g.logger.Debug("Failed to acquire exclusive gate: store is busy")
		return nil, false
	}
	return g.releaser(exclusiveWeight, "exclusive"), true
}

func (g *Gate) acquire(ctx context.Context, weight int64, mode string) (func(), error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if err := g.sem.Acquire(ctx, weight); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			g.logger.Error("Failed to acquire gate: timeout", zap.String("mode", mode), zap.Duration("timeout", g.timeout))
			return nil, fmt.Errorf("%w (%s)", ErrTimeout, mode)
		}
		g.logger.Error("Failed to acquire gate: context cancelled", zap.String("mode", mode), zap.Error(err))
		return nil, fmt.Errorf("failed to acquire %s gate: %w", mode, err)
	}

	g.logger.Debug("Gate acquired", zap.String("mode", mode))
	return g.releaser(weight, mode), nil
}

func (g *Gate) releaser(weight int64, mode string) func() {
	released := false
	return func() {
		if released {
			g.logger.Warn("Gate released twice", zap.String("mode", mode))
			return
		}
		released = true
		g.sem.Release(weight)
		g.logger.Debug("Gate released", zap.String("mode", mode))
	}
}
