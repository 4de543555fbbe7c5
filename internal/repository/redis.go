package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tmakar/linkshort/internal/errors"
	"github.com/tmakar/linkshort/internal/model"
)

const (
	linkKeyPrefix = "link:"
	nextIDKey     = "links:next_id"
	indexKey      = "links:index"
)

// The scripts run atomically inside Redis, which is what makes uniqueness
// and the click increment race-free without any application-side locking.
var (
	// insertScript creates the link hash only if the code is free.
	// Returns the assigned id, or 0 when the code is already taken.
	insertScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
local id = redis.call("INCR", KEYS[2])
redis.call("HSET", KEYS[1],
    "id", id,
    "code", ARGV[1],
    "target_url", ARGV[2],
    "total_clicks", 0,
    "created_at", ARGV[3])
redis.call("ZADD", KEYS[3], id, ARGV[1])
return id
`)

	// incrementScript bumps the counter and stamps last_clicked_at, then
	// returns the full hash so the caller sees the state it produced.
	incrementScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
    return nil
end
redis.call("HINCRBY", KEYS[1], "total_clicks", 1)
redis.call("HSET", KEYS[1], "last_clicked_at", ARGV[1])
return redis.call("HGETALL", KEYS[1])
`)

	// deleteScript removes the hash and its index entry together.
	deleteScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
    return 0
end
redis.call("DEL", KEYS[1])
redis.call("ZREM", KEYS[2], ARGV[1])
return 1
`)
)

// RedisStore implements LinkStore with Redis as the primary store (not a
// cache): one hash per link, a counter for id assignment, and a sorted set
// indexing codes in creation order.
type RedisStore struct {
	client *redis.Client
	clock  model.Clock
}

var _ LinkStore = (*RedisStore)(nil)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
// A nil clock defaults to the system clock.
func NewRedisStore(cfg RedisConfig, clock model.Clock) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	if clock == nil {
		clock = model.RealClock{}
	}
	return &RedisStore{client: client, clock: clock}, nil
}

func (s *RedisStore) Insert(ctx context.Context, code, targetURL string) (*model.Link, error) {
	now := s.clock.Now().UTC()

	id, err := insertScript.Run(ctx, s.client,
		[]string{linkKey(code), nextIDKey, indexKey},
		code, targetURL, now.Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("inserting link: %w", err)
	}
	if id == 0 {
		return nil, errors.ErrDuplicateCode
	}

	return &model.Link{
		ID:        id,
		Code:      code,
		TargetURL: targetURL,
		CreatedAt: now,
	}, nil
}

func (s *RedisStore) FindByCode(ctx context.Context, code string) (*model.Link, error) {
	fields, err := s.client.HGetAll(ctx, linkKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching link: %w", err)
	}
	if len(fields) == 0 {
		return nil, errors.ErrNotFound
	}
	return linkFromFields(fields)
}

func (s *RedisStore) ListAll(ctx context.Context) ([]model.Link, error) {
	codes, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing codes: %w", err)
	}

	links := []model.Link{}
	for _, code := range codes {
		link, err := s.FindByCode(ctx, code)
		if stderrors.Is(err, errors.ErrNotFound) {
			// Deleted between the index scan and the fetch.
			continue
		}
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, nil
}

func (s *RedisStore) IncrementClick(ctx context.Context, code string) (*model.Link, error) {
	now := s.clock.Now().UTC()

	raw, err := incrementScript.Run(ctx, s.client,
		[]string{linkKey(code)},
		now.Format(time.RFC3339Nano),
	).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("incrementing click: %w", err)
	}

	flat, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected script reply type %T", raw)
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		key, _ := flat[i].(string)
		value, _ := flat[i+1].(string)
		fields[key] = value
	}
	return linkFromFields(fields)
}

func (s *RedisStore) Delete(ctx context.Context, code string) error {
	removed, err := deleteScript.Run(ctx, s.client,
		[]string{linkKey(code), indexKey},
		code,
	).Int64()
	if err != nil {
		return fmt.Errorf("deleting link: %w", err)
	}
	if removed == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, linkKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("checking code existence: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func linkKey(code string) string {
	return linkKeyPrefix + code
}

func linkFromFields(fields map[string]string) (*model.Link, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing link id: %w", err)
	}
	clicks, err := strconv.ParseInt(fields["total_clicks"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing click count: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	link := &model.Link{
		ID:          id,
		Code:        fields["code"],
		TargetURL:   fields["target_url"],
		TotalClicks: clicks,
		CreatedAt:   created,
	}

	if raw, ok := fields["last_clicked_at"]; ok && raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parsing last_clicked_at: %w", err)
		}
		link.LastClickedAt = &t
	}
	return link, nil
}
