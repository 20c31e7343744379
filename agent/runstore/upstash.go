package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultUpstashKeyPrefix = "agent:run:"
	defaultUpstashTTL       = 24 * time.Hour
)

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	TTL     time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

// UpstashOption customizes UpstashRedisStore.
type UpstashOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) UpstashOption {
	return func(s *UpstashRedisStore) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) UpstashOption {
	return func(s *UpstashRedisStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.rest.http = client
		}
	}
}

// UpstashRedisStore persists records in Upstash Redis via its REST API.
type UpstashRedisStore struct {
	rest      *restClient
	keyPrefix string
	ttl       time.Duration
}

var _ Store = (*UpstashRedisStore)(nil)

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...UpstashOption) (*UpstashRedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultUpstashTTL
	}

	store := &UpstashRedisStore{
		rest:      newRESTClient(baseURL, token, &http.Client{Timeout: timeout}),
		keyPrefix: defaultUpstashKeyPrefix,
		ttl:       ttl,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return store, nil
}

func (s *UpstashRedisStore) Save(ctx context.Context, rec Record) error {
	rec, err := normalizeRecord(rec)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	args := []any{"SET", s.redisKey(rec.RequestID()), string(payload)}
	if s.ttl > 0 {
		args = append(args, "EX", ttlSeconds(s.ttl))
	}
	_, err = s.rest.command(ctx, args...)
	return err
}

func (s *UpstashRedisStore) Load(ctx context.Context, requestID string) (Record, error) {
	if err := checkRequestID(requestID); err != nil {
		return Record{}, err
	}

	encoded, found, err := s.rest.getString(ctx, s.redisKey(requestID))
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, ErrRecordNotFound
	}

	var rec Record
	if err := json.Unmarshal([]byte(encoded), &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal run record: %w", err)
	}
	return rec, nil
}

func (s *UpstashRedisStore) Delete(ctx context.Context, requestID string) error {
	if err := checkRequestID(requestID); err != nil {
		return err
	}
	_, err := s.rest.command(ctx, "DEL", s.redisKey(requestID))
	return err
}

func (s *UpstashRedisStore) redisKey(requestID string) string {
	prefix := s.keyPrefix
	if prefix == "" {
		prefix = defaultUpstashKeyPrefix
	}
	return prefix + strings.TrimSpace(requestID)
}

// ttlSeconds rounds up so sub-second TTLs never become "no expiry".
func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
