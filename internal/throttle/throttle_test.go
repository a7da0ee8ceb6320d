package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterval_SpacesRequests(t *testing.T) {
	gate := NewInterval(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Wait(ctx))
	}
	elapsed := time.Since(start)

	// first passes at once, the next two wait one interval each
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}

func TestInterval_ZeroDisablesPacing(t *testing.T) {
	gate := NewInterval(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, gate.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestInterval_ContextCancelled(t *testing.T) {
	gate := NewInterval(time.Hour)
	require.NoError(t, gate.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, gate.Wait(ctx))
}

func TestNone(t *testing.T) {
	assert.NoError(t, None{}.Wait(context.Background()))
}
