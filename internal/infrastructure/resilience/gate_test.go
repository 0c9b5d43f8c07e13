package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateStateTransitions(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	gate := NewGate(GateSettings{
		Cooldown: 30 * time.Millisecond,
		OnStateChange: func(host string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, host+":"+from.String()+"->"+to.String())
		},
	})

	assert.Equal(t, StateAdmitting, gate.State("a.example"))
	gate.Trip("a.example")
	assert.Equal(t, StateCooling, gate.State("a.example"))
	assert.Equal(t, StateAdmitting, gate.State("b.example"))

	require.NoError(t, gate.Wait(context.Background(), "a.example"))
	assert.Equal(t, StateAdmitting, gate.State("a.example"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"a.example:admitting->cooling",
		"a.example:cooling->admitting",
	}, transitions)
}

func TestGateWaitBlocksOnlyTrippedHost(t *testing.T) {
	gate := NewGate(GateSettings{Cooldown: 80 * time.Millisecond})
	gate.Trip("slow.example")

	start := time.Now()
	require.NoError(t, gate.Wait(context.Background(), "fast.example"))
	assert.Less(t, time.Since(start), 40*time.Millisecond)

	start = time.Now()
	require.NoError(t, gate.Wait(context.Background(), "slow.example"))
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)

	counts := gate.Counts("slow.example")
	assert.Equal(t, uint32(1), counts.Trips)
	assert.Equal(t, uint32(1), counts.Waits)
	assert.Equal(t, int32(0), counts.Waiting)
}

func TestGateTripExtendsNeverShortens(t *testing.T) {
	gate := NewGate(GateSettings{Cooldown: time.Minute})
	first := gate.Trip("h")
	second := gate.Trip("h")
	assert.False(t, second.Before(first))
	assert.Equal(t, uint32(2), gate.Counts("h").Trips)
	assert.Equal(t, second, gate.Until("h"))
}

func TestGateWaitHonorsContext(t *testing.T) {
	gate := NewGate(GateSettings{Cooldown: time.Hour})
	gate.Trip("h")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := gate.Wait(ctx, "h")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(0), gate.Counts("h").Waiting)
}

func TestGateDefaultCooldown(t *testing.T) {
	assert.Equal(t, time.Hour, NewGate(GateSettings{}).Cooldown())
}

func TestDo(t *testing.T) {
	errTransient := errors.New("transient")
	errFatal := errors.New("fatal")
	retryable := func(err error) bool { return errors.Is(err, errTransient) }

	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), RetryPolicy{MaxRetries: 3}, retryable, func(attempt int) error {
			calls++
			if attempt < 2 {
				return errTransient
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non retryable stops immediately", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), RetryPolicy{MaxRetries: 3}, retryable, func(int) error {
			calls++
			return errFatal
		})
		assert.ErrorIs(t, err, errFatal)
		assert.Equal(t, 1, calls)
	})

	t.Run("bounded", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), RetryPolicy{MaxRetries: 2}, retryable, func(int) error {
			calls++
			return errTransient
		})
		assert.ErrorIs(t, err, ErrRetriesExhausted)
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Do(ctx, RetryPolicy{MaxRetries: 2}, retryable, func(int) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
