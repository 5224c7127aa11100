// Package redis keeps check documents as JSON strings under "check:<id>" keys.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

const (
	keyPrefix = "check:"
	scanCount = 100
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and verifies it with PING.
func Connect(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(id domain.CheckID) string { return keyPrefix + string(id) }

func (s *Store) Create(ctx context.Context, c domain.Check) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis.Store.Create: %w", err)
	}
	ok, err := s.client.SetNX(ctx, key(c.ID), b, 0).Result()
	if err != nil {
		return fmt.Errorf("redis.Store.Create %s: %w", c.ID, err)
	}
	if !ok {
		return fmt.Errorf("redis.Store.Create %s: %w", c.ID, repo.ErrExists)
	}
	return nil
}

func (s *Store) Read(ctx context.Context, id domain.CheckID) (domain.Check, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Check{}, fmt.Errorf("redis.Store.Read %s: %w", id, repo.ErrNotFound)
		}
		return domain.Check{}, fmt.Errorf("redis.Store.Read %s: %w", id, err)
	}
	var c domain.Check
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Check{}, fmt.Errorf("redis.Store.Read %s: %w: %v", id, repo.ErrCorrupt, err)
	}
	return c, nil
}

func (s *Store) Update(ctx context.Context, c domain.Check) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis.Store.Update: %w", err)
	}
	ok, err := s.client.SetXX(ctx, key(c.ID), b, 0).Result()
	if err != nil {
		return fmt.Errorf("redis.Store.Update %s: %w", c.ID, err)
	}
	if !ok {
		return fmt.Errorf("redis.Store.Update %s: %w", c.ID, repo.ErrNotFound)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id domain.CheckID) error {
	n, err := s.client.Del(ctx, key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis.Store.Remove %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("redis.Store.Remove %s: %w", id, repo.ErrNotFound)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.CheckID, error) {
	var (
		out    []domain.CheckID
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("redis.Store.List: %w", err)
		}
		for _, k := range keys {
			out = append(out, domain.CheckID(strings.TrimPrefix(k, keyPrefix)))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

var _ repo.CheckStore = (*Store)(nil)
