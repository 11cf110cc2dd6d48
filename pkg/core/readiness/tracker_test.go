package readiness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTracker(t *testing.T) {
	t.Run("not ready without components", func(t *testing.T) {
		tracker := NewTracker(zap.NewNop())

		assert.False(t, tracker.IsReady())
		assert.False(t, tracker.GetStatus().Ready)
	})

	t.Run("component registered after ready", func(t *testing.T) {
		tracker := NewTracker(zap.NewNop())
		tracker.AddComponent("http-server")()
		require.True(t, tracker.IsReady())

		markModel := tracker.AddComponent("model:summarizer")

		assert.False(t, tracker.IsReady())
		status := tracker.GetStatus()
		assert.False(t, status.Ready)
		assert.True(t, status.ReadyAt.IsZero())
		ready, err := tracker.Predicate()(context.Background())
		require.NoError(t, err)
		assert.False(t, ready)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, tracker.WaitReady(ctx), context.DeadlineExceeded)

		markModel()
		assert.True(t, tracker.IsReady())
		assert.NoError(t, tracker.WaitReady(context.Background()))
	})

	t.Run("re-registering a ready component keeps it ready", func(t *testing.T) {
		tracker := NewTracker(zap.NewNop())
		tracker.AddComponent("http-server")()

		tracker.AddComponent("http-server")

		assert.True(t, tracker.IsReady())
	})

	t.Run("ready once every component is marked ready", func(t *testing.T) {
		tracker := NewTracker(zap.NewNop())
		markServer := tracker.AddComponent("http-server")
		markModel := tracker.AddComponent("model")

		markServer()
		assert.False(t, tracker.IsReady())

		markModel()
		assert.True(t, tracker.IsReady())

		ready, err := tracker.Predicate()(context.Background())
		require.NoError(t, err)
		assert.True(t, ready)
	})

	t.Run("marking twice is harmless", func(t *testing.T) {
		tracker := NewTracker(zap.NewNop())
		mark := tracker.AddComponent("model")

		mark()
		mark()

		assert.True(t, tracker.IsReady())
	})

	t.Run("status lists components sorted by name", func(t *testing.T) {
		tracker := NewTracker(zap.NewNop())
		markB := tracker.AddComponent("b")
		tracker.AddComponent("a")
		markB()

		status := tracker.GetStatus()

		assert.False(t, status.Ready)
		require.Len(t, status.Components, 2)
		assert.Equal(t, "a", status.Components[0].Name)
		assert.False(t, status.Components[0].Ready)
		assert.Equal(t, "b", status.Components[1].Name)
		assert.True(t, status.Components[1].Ready)
		assert.True(t, status.ReadyAt.IsZero())
	})

	t.Run("WaitReady returns when ready", func(t *testing.T) {
		tracker := NewTracker(zap.NewNop())
		mark := tracker.AddComponent("model")

		go func() {
			time.Sleep(10 * time.Millisecond)
			mark()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		assert.NoError(t, tracker.WaitReady(ctx))
	})

	t.Run("WaitReady honours cancellation", func(t *testing.T) {
		tracker := NewTracker(zap.NewNop())
		tracker.AddComponent("model")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, tracker.WaitReady(ctx), context.Canceled)
	})
}
