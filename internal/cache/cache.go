package cache

import (
	"strings"
	"time"
)

// NoExpiration 条目在进程生命周期内常驻
const NoExpiration time.Duration = -1

// Cache 键值存储接口，实现需支持并发访问
type Cache interface {
	Get(key string) (value string, found bool, err error)
	// Set ttl为0时使用默认过期时间，NoExpiration表示永不过期
	Set(key string, value string, ttl time.Duration) error
	Delete(key string) error
	Clear() error
	// Keys 返回所有以prefix开头且未过期的键
	Keys(prefix string) ([]string, error)
}

// Factory 缓存工厂函数类型
type Factory func(config Config) (Cache, error)

var registry = make(map[string]Factory)

// RegisterCache 注册缓存实现
func RegisterCache(name string, factory Factory) {
	registry[name] = factory
}

// NewCache 按类型创建缓存，未注册的类型回退到内存实现
func NewCache(config Config) (Cache, error) {
	if factory, ok := registry[config.Type]; ok {
		return factory(config)
	}
	return NewMemoryCache(config)
}

// Config 缓存配置
type Config struct {
	Type            string        // 缓存类型，目前只有"memory"
	DefaultTTL      time.Duration // 默认过期时间
	CleanupInterval time.Duration // 过期条目清理间隔
}

// DefaultConfig 默认配置：内存存储，条目永不过期
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		DefaultTTL:      NoExpiration,
		CleanupInterval: 10 * time.Minute,
	}
}

// GenerateCacheKey 用冒号拼接前缀和各部分
func GenerateCacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}
