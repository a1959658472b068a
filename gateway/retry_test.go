package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyDecide(t *testing.T) {
	t.Parallel()

	p := Policy{MaxRetries: 3, BackoffFactor: 2.0, BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second}

	tests := []struct {
		name      string
		attempt   int
		transient bool
		wantRetry bool
		wantDelay time.Duration
	}{
		{"first transient", 0, true, true, 2 * time.Second},
		{"second transient", 1, true, true, 4 * time.Second},
		{"third transient", 2, true, true, 8 * time.Second},
		{"budget spent", 3, true, false, 0},
		{"beyond budget", 7, true, false, 0},
		{"permanent first attempt", 0, false, false, 0},
		{"permanent mid-flight", 1, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := p.Decide(tt.attempt, tt.transient)
			assert.Equal(t, tt.wantRetry, got.Retry)
			assert.Equal(t, tt.wantDelay, got.Delay)
		})
	}
}

func TestPolicyDecideCapsDelay(t *testing.T) {
	t.Parallel()

	p := Policy{MaxRetries: 20, BackoffFactor: 2.0, BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second}

	got := p.Decide(10, true)
	require.True(t, got.Retry)
	assert.Equal(t, 60*time.Second, got.Delay)
}

func TestPolicyDecideZeroBudget(t *testing.T) {
	t.Parallel()

	p := Policy{MaxRetries: 0, BackoffFactor: 2.0, BaseDelay: time.Second}

	got := p.Decide(0, true)
	assert.False(t, got.Retry)
}

func TestDoReturnsFirstSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	out, err := Do(context.Background(), "get_item", DefaultPolicy(), func(context.Context) (string, error) {
		calls++
		return "item", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "item", out)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	p := Policy{
		MaxRetries:    3,
		BackoffFactor: 2.0,
		BaseDelay:     time.Second,
		MaxDelay:      60 * time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	calls := 0
	out, err := Do(context.Background(), "query", p, func(context.Context) (int, error) {
		calls++
		if calls <= 3 {
			return 0, Transient(errors.New("throttled"))
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)
}

func TestDoPermanentFailureNeverRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), "get_issue", DefaultPolicy(), func(context.Context) (string, error) {
		calls++
		return "", Permanent(KindNotFound, errors.New("issue does not exist"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDoValidationFailureNeverRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), "create_issue", DefaultPolicy(), func(context.Context) (string, error) {
		calls++
		return "", NewValidationError("project_key", "is required")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsValidation(err))
}

func TestDoExhaustsBudget(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	p := Policy{
		MaxRetries:    2,
		BackoffFactor: 2.0,
		BaseDelay:     time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	calls := 0
	cause := errors.New("rate limited")
	_, err := Do(context.Background(), "search_issues", p, func(context.Context) (string, error) {
		calls++
		return "", Transient(cause)
	})

	require.Error(t, err)
	var exhausted *ExhaustedRetriesError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindExhausted, KindOf(err))
}

func TestDoZeroBudgetFailsOnFirstTransient(t *testing.T) {
	t.Parallel()

	p := Policy{MaxRetries: 0, BackoffFactor: 2.0, BaseDelay: time.Second}

	calls := 0
	_, err := Do(context.Background(), "scan", p, func(context.Context) (string, error) {
		calls++
		return "", Transient(errors.New("throttled"))
	})

	var exhausted *ExhaustedRetriesError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, exhausted.Attempts)
	assert.Equal(t, 1, calls)
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, "put_item", DefaultPolicy(), func(context.Context) (string, error) {
		calls++
		return "", nil
	})

	require.Error(t, err)
	assert.Equal(t, 0, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoStopsWhenCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxRetries:    5,
		BackoffFactor: 2.0,
		BaseDelay:     time.Second,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	calls := 0
	_, err := Do(ctx, "update_item", p, func(context.Context) (string, error) {
		calls++
		return "", Transient(errors.New("throttled"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}
