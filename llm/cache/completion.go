package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/BaSui01/agentorch/llm"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss indicates cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Entry is a cached completion.
type Entry struct {
	Completion *llm.Completion `json:"completion"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Config configures the completion cache.
type Config struct {
	LocalMaxSize int           `yaml:"local_max_size" json:"local_max_size"`
	LocalTTL     time.Duration `yaml:"local_ttl" json:"local_ttl"`
	RedisTTL     time.Duration `yaml:"redis_ttl" json:"redis_ttl"`
	KeyPrefix    string        `yaml:"key_prefix" json:"key_prefix"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LocalMaxSize: 1000,
		LocalTTL:     5 * time.Minute,
		RedisTTL:     time.Hour,
		KeyPrefix:    "agentorch:completion:",
	}
}

// CompletionCache is a two-level cache: an in-process expiring LRU in
// front of an optional Redis tier. Only requests without tool
// declarations are cached.
type CompletionCache struct {
	local  *expirable.LRU[string, *Entry]
	redis  *redis.Client
	config Config
	logger *zap.Logger
}

// New creates a completion cache. rdb may be nil for a local-only cache.
func New(rdb *redis.Client, config Config, logger *zap.Logger) *CompletionCache {
	def := DefaultConfig()
	if config.LocalMaxSize <= 0 {
		config.LocalMaxSize = def.LocalMaxSize
	}
	if config.LocalTTL <= 0 {
		config.LocalTTL = def.LocalTTL
	}
	if config.RedisTTL <= 0 {
		config.RedisTTL = def.RedisTTL
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = def.KeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionCache{
		local:  expirable.NewLRU[string, *Entry](config.LocalMaxSize, nil, config.LocalTTL),
		redis:  rdb,
		config: config,
		logger: logger.With(zap.String("component", "completion_cache")),
	}
}

// Get looks a request up, local tier first.
func (c *CompletionCache) Get(ctx context.Context, req *llm.Request) (*llm.Completion, error) {
	if !req.Cacheable() {
		return nil, ErrCacheMiss
	}
	key := Key(req)

	if entry, ok := c.local.Get(key); ok {
		return entry.Completion, nil
	}

	if c.redis == nil {
		return nil, ErrCacheMiss
	}
	data, err := c.redis.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get failed", zap.Error(err))
		}
		return nil, ErrCacheMiss
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Completion == nil {
		return nil, ErrCacheMiss
	}
	c.local.Add(key, &entry)
	return entry.Completion, nil
}

// Set stores a completion for req. Non-cacheable requests are ignored.
func (c *CompletionCache) Set(ctx context.Context, req *llm.Request, completion *llm.Completion) error {
	if !req.Cacheable() || completion == nil {
		return nil
	}
	key := Key(req)
	entry := &Entry{Completion: completion, CreatedAt: time.Now()}
	c.local.Add(key, entry)

	if c.redis == nil {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, c.redisKey(key), data, c.config.RedisTTL).Err()
}

// Len returns the number of locally cached entries.
func (c *CompletionCache) Len() int {
	return c.local.Len()
}

// Key derives a cache key from everything that influences the completion.
func Key(req *llm.Request) string {
	data, _ := json.Marshal(struct {
		Provider    string  `json:"provider"`
		Model       string  `json:"model"`
		System      string  `json:"system"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Message     string  `json:"message"`
	}{
		Provider:    string(req.Agent.Provider),
		Model:       req.Agent.Model,
		System:      req.Agent.SystemPrompt,
		Temperature: req.Agent.Temperature,
		MaxTokens:   req.Agent.MaxTokens,
		Message:     req.UserMessage(),
	})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *CompletionCache) redisKey(key string) string {
	return c.config.KeyPrefix + key
}
