package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookBack_StopsAtResolvedPredecessor(t *testing.T) {
	cells := newCells[float32](4)
	cells[0].PublishAggregate(4)
	cells[0].PublishPrefix(0, 4)
	cells[1].PublishAggregate(4)
	cells[2].PublishAggregate(0)

	prefix, err := lookBack(context.Background(), cells, 3, waitPolicy{})
	require.NoError(t, err)
	assert.Equal(t, float32(8), prefix)
}

func TestLookBack_WalksToBlockZero(t *testing.T) {
	cells := newCells[int64](3)
	cells[0].PublishAggregate(2)
	cells[1].PublishAggregate(3)

	prefix, err := lookBack(context.Background(), cells, 2, waitPolicy{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), prefix)
}

func TestLookBack_ZeroPrefixIsInformative(t *testing.T) {
	cells := newCells[float64](3)
	cells[0].PublishAggregate(0)
	cells[0].PublishPrefix(0, 0)
	cells[1].PublishAggregate(0)
	// cells[1] stays AggregateZero and cells[0] is GlobalPrefixZero: neither
	// may be mistaken for an unpublished cell, so no wait happens.
	prefix, err := lookBack(context.Background(), cells, 2, waitPolicy{timeout: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, float64(0), prefix)
}

func TestLookBack_WaitsForPublication(t *testing.T) {
	for _, mode := range []WaitMode{WaitNotify, WaitSpin} {
		t.Run(mode.String(), func(t *testing.T) {
			cells := newCells[float32](2)
			go func() {
				time.Sleep(5 * time.Millisecond)
				cells[0].PublishAggregate(7)
			}()
			prefix, err := lookBack(context.Background(), cells, 1, waitPolicy{mode: mode, timeout: 5 * time.Second})
			require.NoError(t, err)
			assert.Equal(t, float32(7), prefix)
		})
	}
}

func TestLookBack_Stall(t *testing.T) {
	tests := []struct {
		name   string
		policy waitPolicy
	}{
		{"notify timeout", waitPolicy{mode: WaitNotify, timeout: 10 * time.Millisecond, level: 2}},
		{"spin limit", waitPolicy{mode: WaitSpin, spinLimit: 100, level: 2}},
		{"spin timeout", waitPolicy{mode: WaitSpin, timeout: 10 * time.Millisecond, level: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := newCells[float32](3)
			cells[1].PublishAggregate(1)

			_, err := lookBack(context.Background(), cells, 2, tt.policy)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStalledLookback)

			var stall *StallError
			require.True(t, errors.As(err, &stall))
			assert.Equal(t, 2, stall.Level)
			assert.Equal(t, 2, stall.Block)
			assert.Equal(t, 0, stall.Waiting)
			assert.Contains(t, stall.Error(), "level 2 block 2 on block 0")
		})
	}
}

func TestLookBack_ContextCanceled(t *testing.T) {
	cells := newCells[float32](2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lookBack(ctx, cells, 1, waitPolicy{mode: WaitNotify})
	assert.ErrorIs(t, err, context.Canceled)
}
