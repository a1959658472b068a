package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/medassureai/artifact-gateway/gateway"
	"github.com/medassureai/artifact-gateway/pkg/observability"
)

const defaultTTL = 24 * time.Hour

// RedisClient is the slice of go-redis used by the session store.
// *redis.Client satisfies it.
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Store keeps generation sessions in Redis: JSON under session:<id> with a
// sliding TTL, plus a per-project index set for listing. Commands are retried
// under the configured policy; a missing key surfaces as not-found.
type Store struct {
	rdb     RedisClient
	ttl     time.Duration
	policy  gateway.Policy
	metrics observability.Provider
	now     func() time.Time
	newID   func() string
}

type Option func(*Store)

// WithPolicy overrides the default retry policy.
func WithPolicy(p gateway.Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithMetrics emits call and retry counters to the given provider.
func WithMetrics(m observability.Provider) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDSource overrides session id generation.
func WithIDSource(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New builds a Store. A non-positive ttl falls back to 24 hours.
func New(rdb RedisClient, ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	s := &Store{
		rdb:    rdb,
		ttl:    ttl,
		policy: gateway.DefaultPolicy(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metrics != nil && s.policy.OnRetry == nil {
		s.policy.OnRetry = func(op string, attempt int, delay time.Duration) {
			_ = s.metrics.Count("redis.retries", 1, []string{"operation:" + op})
		}
	}
	return s
}

// Create opens an active session and registers it in the project index.
func (s *Store) Create(ctx context.Context, req CreateRequest) (Session, error) {
	if req.ProjectID == "" {
		return Session{}, gateway.NewValidationError("project_id", "is required")
	}
	if req.Type == "" {
		return Session{}, gateway.NewValidationError("type", "is required")
	}

	now := s.now().UTC().Truncate(time.Second)
	sess := Session{
		ID:        s.newID(),
		ProjectID: req.ProjectID,
		Type:      req.Type,
		Status:    StatusActive,
		Context:   req.Context,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(ctx, sess); err != nil {
		return Session{}, err
	}

	_, err := gateway.Do(ctx, "sadd", s.policy, func(ctx context.Context) (struct{}, error) {
		if err := s.rdb.SAdd(ctx, projectKey(sess.ProjectID), sess.ID).Err(); err != nil {
			return struct{}{}, classify(ctx, err)
		}
		if err := s.rdb.Expire(ctx, projectKey(sess.ProjectID), s.ttl).Err(); err != nil {
			return struct{}{}, classify(ctx, err)
		}
		return struct{}{}, nil
	})
	s.observe("sadd", err)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Get loads one session by id.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, gateway.NewValidationError("session_id", "is required")
	}
	return s.read(ctx, id)
}

// SetStatus moves a session to the given lifecycle state.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) (Session, error) {
	if id == "" {
		return Session{}, gateway.NewValidationError("session_id", "is required")
	}
	if !status.valid() {
		return Session{}, gateway.NewValidationError("status", "must be one of active, complete, expired, error")
	}

	sess, err := s.read(ctx, id)
	if err != nil {
		return Session{}, err
	}
	sess.Status = status
	sess.UpdatedAt = s.now().UTC().Truncate(time.Second)
	if err := s.write(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// AppendMessage records one conversation turn. An unset SentAt is stamped
// with the current time.
func (s *Store) AppendMessage(ctx context.Context, id string, msg Message) (Session, error) {
	if id == "" {
		return Session{}, gateway.NewValidationError("session_id", "is required")
	}
	if msg.Role == "" {
		return Session{}, gateway.NewValidationError("role", "is required")
	}
	if msg.Content == "" {
		return Session{}, gateway.NewValidationError("content", "is required")
	}

	sess, err := s.read(ctx, id)
	if err != nil {
		return Session{}, err
	}
	now := s.now().UTC().Truncate(time.Second)
	if msg.SentAt.IsZero() {
		msg.SentAt = now
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = now
	if err := s.write(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Touch restarts the session TTL without rewriting the payload.
func (s *Store) Touch(ctx context.Context, id string) error {
	if id == "" {
		return gateway.NewValidationError("session_id", "is required")
	}

	ok, err := gateway.Do(ctx, "expire", s.policy, func(ctx context.Context) (bool, error) {
		ok, err := s.rdb.Expire(ctx, sessionKey(id), s.ttl).Result()
		if err != nil {
			return false, classify(ctx, err)
		}
		return ok, nil
	})
	s.observe("expire", err)
	if err != nil {
		return err
	}
	if !ok {
		return gateway.Permanent(gateway.KindNotFound, ErrSessionNotFound)
	}
	return nil
}

// Delete removes a session and its index entry. Deleting an absent session
// succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return gateway.NewValidationError("session_id", "is required")
	}

	sess, err := s.read(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}

	_, err = gateway.Do(ctx, "del", s.policy, func(ctx context.Context) (struct{}, error) {
		if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
			return struct{}{}, classify(ctx, err)
		}
		if err := s.rdb.SRem(ctx, projectKey(sess.ProjectID), id).Err(); err != nil {
			return struct{}{}, classify(ctx, err)
		}
		return struct{}{}, nil
	})
	s.observe("del", err)
	return err
}

// ListByProject returns a project's sessions ordered by creation time. Index
// entries whose session already expired are pruned along the way.
func (s *Store) ListByProject(ctx context.Context, projectID string) ([]Session, error) {
	if projectID == "" {
		return nil, gateway.NewValidationError("project_id", "is required")
	}

	ids, err := gateway.Do(ctx, "smembers", s.policy, func(ctx context.Context) ([]string, error) {
		ids, err := s.rdb.SMembers(ctx, projectKey(projectID)).Result()
		if err != nil {
			return nil, classify(ctx, err)
		}
		return ids, nil
	})
	s.observe("smembers", err)
	if err != nil {
		return nil, err
	}

	out := make([]Session, 0, len(ids))
	var stale []any
	for _, id := range ids {
		sess, err := s.read(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if len(stale) > 0 {
		// Best effort: a failed prune only leaves entries for the next list.
		_ = s.rdb.SRem(ctx, projectKey(projectID), stale...).Err()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) read(ctx context.Context, id string) (Session, error) {
	raw, err := gateway.Do(ctx, "get", s.policy, func(ctx context.Context) (string, error) {
		val, err := s.rdb.Get(ctx, sessionKey(id)).Result()
		if err != nil {
			return "", classify(ctx, err)
		}
		return val, nil
	})
	s.observe("get", err)
	if err != nil {
		return Session{}, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, gateway.Permanent(gateway.KindPermanent, fmt.Errorf("sessions: decode session %s: %w", id, err))
	}
	return sess, nil
}

func (s *Store) write(ctx context.Context, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return gateway.Permanent(gateway.KindPermanent, fmt.Errorf("sessions: encode session %s: %w", sess.ID, err))
	}

	_, err = gateway.Do(ctx, "set", s.policy, func(ctx context.Context) (struct{}, error) {
		if err := s.rdb.Set(ctx, sessionKey(sess.ID), raw, s.ttl).Err(); err != nil {
			return struct{}{}, classify(ctx, err)
		}
		return struct{}{}, nil
	})
	s.observe("set", err)
	return err
}

func (s *Store) observe(command string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	_ = s.metrics.Count("redis.calls", 1, []string{"command:" + command, "outcome:" + outcome})
}

// classify maps redis failures into the gateway taxonomy. A missing key is
// terminal not-found and a done context is terminal; everything else (dial
// failures, pool exhaustion, command timeouts) is worth retrying.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return gateway.Permanent(gateway.KindNotFound, ErrSessionNotFound)
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return gateway.Permanent(gateway.KindPermanent, err)
	}
	return gateway.Transient(err)
}

func sessionKey(id string) string {
	return "session:" + id
}

func projectKey(projectID string) string {
	return "sessions:project:" + projectID
}
