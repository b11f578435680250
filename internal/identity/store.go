package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned by a Store for unknown or expired ids.
var ErrNoSession = errors.New("identity: session not found")

// Store persists signed-in credentials by session id.
type Store interface {
	Load(ctx context.Context, id string) (*Credentials, error)
	Save(ctx context.Context, id string, c *Credentials, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memoryRecord struct {
	creds   Credentials
	expires time.Time
}

// MemoryStore keeps sessions in process. A zero ttl never expires.
type MemoryStore struct {
	mu  sync.Mutex
	m   map[string]memoryRecord
	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]memoryRecord), Now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.m[id]
	if !ok {
		return nil, ErrNoSession
	}
	if !rec.expires.IsZero() && !s.Now().Before(rec.expires) {
		delete(s.m, id)

		return nil, ErrNoSession
	}
	c := rec.creds

	return &c, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, c *Credentials, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := memoryRecord{creds: *c}
	if ttl > 0 {
		rec.expires = s.Now().Add(ttl)
	}
	s.m[id] = rec

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()

	return nil
}

// sessionKeyPrefix namespaces session records in redis.
const sessionKeyPrefix = "hoppa:session:"

// RedisStore keeps sessions in redis as JSON strings with a TTL.
type RedisStore struct {
	RDB *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{RDB: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.RDB.Ping(ctx).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Credentials, error) {
	raw, err := s.RDB.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("identity: load session: %w", err)
	}

	var c Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("identity: decode session: %w", err)
	}

	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, c *Credentials, ttl time.Duration) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("identity: encode session: %w", err)
	}
	if err := s.RDB.Set(ctx, sessionKeyPrefix+id, raw, ttl).Err(); err != nil {
		return fmt.Errorf("identity: save session: %w", err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.RDB.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("identity: delete session: %w", err)
	}

	return nil
}

func (s *RedisStore) Close() error { return s.RDB.Close() }
