package bench

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	result, err := Run(3, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Iterations)
	assert.EqualValues(t, 3, result.FinalState.Sequence)
	assert.Greater(t, result.Update.AvgMS, 0.0)
	assert.LessOrEqual(t, result.Update.MinMS, result.Update.MaxMS)
	assert.Greater(t, result.Sizes.CommitmentsBytes, 0)
	assert.Greater(t, result.Sizes.ProofsBytes, 0)
	assert.Greater(t, result.Sizes.SignaturesBytes, 0)
}

func TestRunRejectsBadIterations(t *testing.T) {
	_, err := Run(0, nil)
	assert.Error(t, err)
	_, err = Run(-1, nil)
	assert.Error(t, err)
}

func TestRunParallel(t *testing.T) {
	results, err := RunParallel(context.Background(), 2, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, 2, result.Iterations)
	}
}

func TestRunParallelCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := RunParallel(ctx, 2, 1, nil)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	timing := summarize([]time.Duration{time.Millisecond, 3 * time.Millisecond})
	assert.InDelta(t, 2.0, timing.AvgMS, 1e-9)
	assert.InDelta(t, 1.0, timing.MinMS, 1e-9)
	assert.InDelta(t, 3.0, timing.MaxMS, 1e-9)

	assert.Zero(t, summarize(nil))
}
