package sessions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedis implements RedisClient over in-memory maps. Function fields
// override single commands for failure injection; unset fields run against
// the maps with real command semantics (a missing key answers redis.Nil).
// Calls are counted per command.
type MockRedis struct {
	SetFn      func(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	GetFn      func(ctx context.Context, key string) *redis.StringCmd
	DelFn      func(ctx context.Context, keys ...string) *redis.IntCmd
	SAddFn     func(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRemFn     func(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembersFn func(ctx context.Context, key string) *redis.StringSliceCmd
	ExpireFn   func(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd

	mu     sync.Mutex
	calls  map[string]int
	values map[string]string
	sets   map[string]map[string]struct{}
	expiry map[string]time.Duration
}

// CallCount reports how many times the named command was invoked.
func (m *MockRedis) CallCount(command string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[command]
}

// Value returns the stored string under key, if any.
func (m *MockRedis) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Members returns the sorted members of the set under key.
func (m *MockRedis) Members(key string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.membersLocked(key)
}

// Expiry returns the last TTL applied to key.
func (m *MockRedis) Expiry(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiry[key]
}

func (m *MockRedis) record(command string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[command]++
	if m.values == nil {
		m.values = make(map[string]string)
		m.sets = make(map[string]map[string]struct{})
		m.expiry = make(map[string]time.Duration)
	}
}

func (m *MockRedis) membersLocked(key string) []string {
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

func (m *MockRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.record("Set")
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value, expiration)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = stringify(value)
	m.expiry[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *MockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.record("Get")
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *MockRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.record("Del")
	if m.DelFn != nil {
		return m.DelFn(ctx, keys...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := m.values[key]; ok {
			delete(m.values, key)
			delete(m.expiry, key)
			removed++
		}
		if _, ok := m.sets[key]; ok {
			delete(m.sets, key)
			delete(m.expiry, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (m *MockRedis) SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd {
	m.record("SAdd")
	if m.SAddFn != nil {
		return m.SAddFn(ctx, key, members...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]struct{})
	}
	var added int64
	for _, member := range members {
		name := stringify(member)
		if _, ok := m.sets[key][name]; !ok {
			m.sets[key][name] = struct{}{}
			added++
		}
	}
	return redis.NewIntResult(added, nil)
}

func (m *MockRedis) SRem(ctx context.Context, key string, members ...any) *redis.IntCmd {
	m.record("SRem")
	if m.SRemFn != nil {
		return m.SRemFn(ctx, key, members...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for _, member := range members {
		name := stringify(member)
		if _, ok := m.sets[key][name]; ok {
			delete(m.sets[key], name)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (m *MockRedis) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	m.record("SMembers")
	if m.SMembersFn != nil {
		return m.SMembersFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return redis.NewStringSliceResult(m.membersLocked(key), nil)
}

func (m *MockRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.record("Expire")
	if m.ExpireFn != nil {
		return m.ExpireFn(ctx, key, expiration)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, hasValue := m.values[key]
	_, hasSet := m.sets[key]
	if !hasValue && !hasSet {
		return redis.NewBoolResult(false, nil)
	}
	m.expiry[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
