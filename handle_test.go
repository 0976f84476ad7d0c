package kafkaenv

import (
	"context"
	"testing"
	"time"
)

func TestBroker_effectiveStopTimeout(t *testing.T) {
	t.Parallel()

	b := &Broker{stopTimeout: 10 * time.Second}

	t.Run("no deadline uses configured timeout", func(t *testing.T) {
		t.Parallel()
		if got := b.effectiveStopTimeout(context.Background()); got != 10*time.Second {
			t.Errorf("effectiveStopTimeout() = %s, want 10s", got)
		}
	})

	t.Run("distant deadline uses configured timeout", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		if got := b.effectiveStopTimeout(ctx); got != 10*time.Second {
			t.Errorf("effectiveStopTimeout() = %s, want 10s", got)
		}
	})

	t.Run("closer deadline shortens the timeout", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		got := b.effectiveStopTimeout(ctx)
		if got > 5*time.Second || got < minStopTimeout {
			t.Errorf("effectiveStopTimeout() = %s, want within (%s, 5s]", got, minStopTimeout)
		}
	})

	t.Run("expired deadline clamps to the floor", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Minute))
		defer cancel()
		if got := b.effectiveStopTimeout(ctx); got != minStopTimeout {
			t.Errorf("effectiveStopTimeout() = %s, want floor %s", got, minStopTimeout)
		}
	})
}
