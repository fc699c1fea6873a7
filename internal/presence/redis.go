package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "kocrou:presence:"

// RedisRegistry shares presence across API instances. Each admin is one key
// with a TTL refreshed on every heartbeat; connection counts live in a
// sibling counter key.
type RedisRegistry struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRegistry{Client: client, Prefix: defaultKeyPrefix, TTL: ttl}
}

func (r *RedisRegistry) adminKey(userID int64) string {
	return r.Prefix + "admin:" + strconv.FormatInt(userID, 10)
}

func (r *RedisRegistry) connKey(userID int64) string {
	return r.Prefix + "conns:" + strconv.FormatInt(userID, 10)
}

func (r *RedisRegistry) Join(ctx context.Context, a Admin) error {
	now := time.Now()
	key := r.adminKey(a.UserID)

	existing, err := r.get(ctx, key)
	if err != nil {
		return err
	}
	if existing != nil {
		a.ConnectedAt = existing.ConnectedAt
	} else {
		a.ConnectedAt = now
	}
	a.LastSeen = now

	raw, err := encodeAdmin(a)
	if err != nil {
		return err
	}
	pipe := r.Client.TxPipeline()
	pipe.Set(ctx, key, raw, r.TTL)
	pipe.Incr(ctx, r.connKey(a.UserID))
	pipe.Expire(ctx, r.connKey(a.UserID), r.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence join: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Touch(ctx context.Context, userID int64) error {
	key := r.adminKey(userID)
	a, err := r.get(ctx, key)
	if err != nil || a == nil {
		return err
	}
	a.LastSeen = time.Now()
	raw, err := encodeAdmin(*a)
	if err != nil {
		return err
	}
	pipe := r.Client.TxPipeline()
	pipe.Set(ctx, key, raw, r.TTL)
	pipe.Expire(ctx, r.connKey(userID), r.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence touch: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Leave(ctx context.Context, userID int64) error {
	n, err := r.Client.Decr(ctx, r.connKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("presence leave: %w", err)
	}
	if n > 0 {
		return nil
	}
	if err := r.Client.Del(ctx, r.adminKey(userID), r.connKey(userID)).Err(); err != nil {
		return fmt.Errorf("presence leave: %w", err)
	}
	return nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]Admin, error) {
	keys := []string{}
	iter := r.Client.Scan(ctx, 0, r.Prefix+"admin:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("presence scan: %w", err)
	}
	out := []Admin{}
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := r.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("presence list: %w", err)
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		a, err := decodeAdmin(s)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	sortAdmins(out)
	return out, nil
}

func (r *RedisRegistry) get(ctx context.Context, key string) (*Admin, error) {
	raw, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("presence get: %w", err)
	}
	a, err := decodeAdmin(raw)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func encodeAdmin(a Admin) (string, error) {
	b, err := json.Marshal(a)
	return string(b), err
}

func decodeAdmin(s string) (Admin, error) {
	var a Admin
	err := json.Unmarshal([]byte(s), &a)
	return a, err
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
