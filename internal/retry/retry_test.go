package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/codeforge-api/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestPolicyStopsOnSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.New(3, retry.Fixed(time.Millisecond)).Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 2 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPolicyExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.New(3, retry.Fixed(time.Millisecond)).Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errFlaky
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, errFlaky)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestPolicyPermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.New(3, retry.Fixed(time.Millisecond)).Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return retry.Permanent(errFlaky)
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, errFlaky, err)
	assert.NotErrorIs(t, err, retry.ErrExhausted)
}

func TestPolicyWaitsBetweenAttempts(t *testing.T) {
	t.Parallel()

	var stamps []time.Time
	_ = retry.New(2, retry.Fixed(30*time.Millisecond)).Do(context.Background(), func(ctx context.Context, attempt int) error {
		stamps = append(stamps, time.Now())
		return errFlaky
	})

	require.Len(t, stamps, 2)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 30*time.Millisecond)
}

func TestPolicyHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry.New(5, retry.Fixed(time.Hour)).Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return errFlaky
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZeroPolicyRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Policy{}.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errFlaky
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errFlaky)
}

func TestExponentialDelayGrows(t *testing.T) {
	t.Parallel()

	delay := retry.Exponential(100 * time.Millisecond)
	for i := 0; i < 20; i++ {
		first := delay(1)
		third := delay(3)
		assert.GreaterOrEqual(t, first, 50*time.Millisecond)
		assert.Less(t, first, 100*time.Millisecond)
		assert.GreaterOrEqual(t, third, 200*time.Millisecond)
		assert.Less(t, third, 400*time.Millisecond)
	}
}
