package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassureai/artifact-gateway/gateway"
)

var sessionStart = time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

// instantPolicy retries without sleeping and records every delay decision.
func instantPolicy(delays *[]time.Duration) gateway.Policy {
	p := gateway.DefaultPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return p
}

// newTestStore pins the clock to *now and hands out sess-1, sess-2, ... ids.
func newTestStore(rdb RedisClient, now *time.Time) *Store {
	n := 0
	return New(rdb, 24*time.Hour,
		WithClock(func() time.Time { return *now }),
		WithIDSource(func() string {
			n++
			return fmt.Sprintf("sess-%d", n)
		}),
	)
}

func TestCreateStoresSessionAndIndex(t *testing.T) {
	mock := &MockRedis{}
	now := sessionStart
	store := newTestStore(mock, &now)

	sess, err := store.Create(context.Background(), CreateRequest{
		ProjectID: "p-100",
		Type:      "test_case_generation",
		Context:   map[string]any{"epic_id": "E1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, StatusActive, sess.Status)
	assert.Equal(t, sessionStart, sess.CreatedAt)
	assert.Equal(t, sessionStart, sess.UpdatedAt)

	raw, ok := mock.Value("session:sess-1")
	require.True(t, ok)
	var stored Session
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, sess, stored)

	assert.Equal(t, 24*time.Hour, mock.Expiry("session:sess-1"))
	assert.Equal(t, []string{"sess-1"}, mock.Members("sessions:project:p-100"))
	assert.Equal(t, 24*time.Hour, mock.Expiry("sessions:project:p-100"))
}

func TestCreateValidatesRequest(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRequest
		want string
	}{
		{"missing project", CreateRequest{Type: "epic_generation"}, "project_id is required"},
		{"missing type", CreateRequest{ProjectID: "p-100"}, "type is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockRedis{}
			now := sessionStart
			store := newTestStore(mock, &now)

			_, err := store.Create(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, gateway.IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)
			assert.Zero(t, mock.CallCount("Set"))
		})
	}
}

func TestGetRoundTrip(t *testing.T) {
	mock := &MockRedis{}
	now := sessionStart
	store := newTestStore(mock, &now)

	created, err := store.Create(context.Background(), CreateRequest{ProjectID: "p-100", Type: "epic_generation"})
	require.NoError(t, err)

	got, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestGetMissingSessionIsNotFound(t *testing.T) {
	mock := &MockRedis{}
	now := sessionStart
	store := newTestStore(mock, &now)

	_, err := store.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, gateway.KindNotFound, gateway.KindOf(err))
}

func TestGetRetriesTransientFailures(t *testing.T) {
	want := Session{
		ID:        "sess-9",
		ProjectID: "p-100",
		Type:      "epic_generation",
		Status:    StatusActive,
		CreatedAt: sessionStart,
		UpdatedAt: sessionStart,
	}
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	mock := &MockRedis{}
	attempts := 0
	mock.GetFn = func(ctx context.Context, key string) *redis.StringCmd {
		attempts++
		if attempts <= 2 {
			return redis.NewStringResult("", errors.New("connection reset by peer"))
		}
		return redis.NewStringResult(string(raw), nil)
	}
	var delays []time.Duration
	store := New(mock, 24*time.Hour, WithPolicy(instantPolicy(&delays)))

	got, err := store.Get(context.Background(), "sess-9")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	assert.Equal(t, 3, mock.CallCount("Get"))
}

func TestSetStatusRewritesSession(t *testing.T) {
	mock := &MockRedis{}
	now := sessionStart
	store := newTestStore(mock, &now)

	created, err := store.Create(context.Background(), CreateRequest{ProjectID: "p-100", Type: "epic_generation"})
	require.NoError(t, err)

	now = sessionStart.Add(10 * time.Minute)
	sess, err := store.SetStatus(context.Background(), created.ID, StatusComplete)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, sess.Status)
	assert.Equal(t, sessionStart, sess.CreatedAt)
	assert.Equal(t, now, sess.UpdatedAt)

	raw, ok := mock.Value("session:sess-1")
	require.True(t, ok)
	var stored Session
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, StatusComplete, stored.Status)
}

func TestSetStatusRejectsUnknownState(t *testing.T) {
	mock := &MockRedis{}
	now := sessionStart
	store := newTestStore(mock, &now)

	_, err := store.SetStatus(context.Background(), "sess-1", Status("draft"))
	require.Error(t, err)
	assert.True(t, gateway.IsValidation(err))
	assert.Contains(t, err.Error(), "must be one of active, complete, expired, error")
	assert.Zero(t, mock.CallCount("Get"))
}

func TestAppendMessageKeepsOrder(t *testing.T) {
	mock := &MockRedis{}
	now := sessionStart
	store := newTestStore(mock, &now)

	created, err := store.Create(context.Background(), CreateRequest{ProjectID: "p-100", Type: "test_case_generation"})
	require.NoError(t, err)

	now = sessionStart.Add(time.Minute)
	sess, err := store.AppendMessage(context.Background(), created.ID, Message{
		Role:    "user",
		Content: "Generate test cases for bolus delivery",
	})
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, now, sess.Messages[0].SentAt, "an unset SentAt is stamped")

	stamped := sessionStart.Add(90 * time.Second)
	sess, err = store.AppendMessage(context.Background(), created.ID, Message{
		Role:    "assistant",
		Content: "Drafted 4 test cases",
		SentAt:  stamped,
	})
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "user", sess.Messages[0].Role)
	assert.Equal(t, "assistant", sess.Messages[1].Role)
	assert.Equal(t, stamped, sess.Messages[1].SentAt, "an explicit SentAt survives")
}

func TestAppendMessageValidates(t *testing.T) {
	mock := &MockRedis{}
	now := sessionStart
	store := newTestStore(mock, &now)

	_, err := store.AppendMessage(context.Background(), "sess-1", Message{Role: "user"})
	require.Error(t, err)
	assert.True(t, gateway.IsValidation(err))
	assert.Contains(t, err.Error(), "content is required")
	assert.Zero(t, mock.CallCount("Get"))
}

func TestTouchRefreshesTTL(t *testing.T) {
	mock := &MockRedis{}
	now := sessionStart
	store := newTestStore(mock, &now)

	created, err := store.Create(context.Background(), CreateRequest{ProjectID: "p-100", Type: "epic_generation"})
	require.NoError(t, err)

	require.NoError(t, store.Touch(context.Background(), created.ID))
	assert.Equal(t, 24*time.Hour, mock.Expiry("session:sess-1"))

	err = store.Touch(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteRemovesSessionAndIndexEntry(t *testing.T) {
	mock := &MockRedis{}
	now := sessionStart
	store := newTestStore(mock, &now)

	first, err := store.Create(context.Background(), CreateRequest{ProjectID: "p-100", Type: "epic_generation"})
	require.NoError(t, err)
	_, err = store.Create(context.Background(), CreateRequest{ProjectID: "p-100", Type: "epic_generation"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), first.ID))
	_, ok := mock.Value("session:sess-1")
	assert.False(t, ok)
	assert.Equal(t, []string{"sess-2"}, mock.Members("sessions:project:p-100"))

	assert.NoError(t, store.Delete(context.Background(), first.ID), "deleting an absent session succeeds")
}

func TestListByProjectOrdersAndPrunes(t *testing.T) {
	mock := &MockRedis{}
	now := sessionStart
	store := newTestStore(mock, &now)

	for i := 0; i < 3; i++ {
		_, err := store.Create(context.Background(), CreateRequest{ProjectID: "p-100", Type: "epic_generation"})
		require.NoError(t, err)
		now = now.Add(time.Minute)
	}
	// Simulate a lapsed TTL: the value is gone, the index entry remains.
	mock.Del(context.Background(), "session:sess-2")

	listed, err := store.ListByProject(context.Background(), "p-100")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "sess-1", listed[0].ID)
	assert.Equal(t, "sess-3", listed[1].ID)
	assert.True(t, listed[0].CreatedAt.Before(listed[1].CreatedAt))

	assert.Equal(t, []string{"sess-1", "sess-3"}, mock.Members("sessions:project:p-100"),
		"stale index entries are pruned")
}

func TestListByProjectRequiresProjectID(t *testing.T) {
	mock := &MockRedis{}
	now := sessionStart
	store := newTestStore(mock, &now)

	_, err := store.ListByProject(context.Background(), "")
	require.Error(t, err)
	assert.True(t, gateway.IsValidation(err))
}
