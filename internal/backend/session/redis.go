package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "leafdoctor:session:"

// RedisStore keeps sessions as JSON values and lets redis expire them
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

type redisSession struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// NewRedisStore accepts either a redis:// URL or a bare host:port address
func NewRedisStore(connectionString string, ttl time.Duration) (*RedisStore, error) {
	if connectionString == "" {
		return nil, errors.New("redis connection string is empty")
	}

	var options *redis.Options
	if strings.Contains(connectionString, "://") {
		parsed, err := redis.ParseURL(connectionString)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		options = parsed
	} else {
		options = &redis.Options{Addr: connectionString}
	}

	client := redis.NewClient(options)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", options.Addr, err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (r *RedisStore) Create(ctx context.Context, username string) (*Session, error) {
	session, err := newSession(username, r.ttl, r.now())
	if err != nil {
		return nil, err
	}
	value, err := json.Marshal(redisSession{
		Username:  session.Username,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	// a zero expiration keeps the key until logout
	if err := r.client.Set(ctx, redisKeyPrefix+session.ID, value, r.ttl).Err(); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	value, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var stored redisSession
	if err := json.Unmarshal(value, &stored); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	session := &Session{
		ID:        id,
		Username:  stored.Username,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}
	if session.Expired(r.now()) {
		return nil, r.Delete(ctx, id)
	}
	return session, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisKeyPrefix+id).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
