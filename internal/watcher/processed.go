package watcher

import (
	"strings"

	"github.com/fyerfyer/doc-summary-agent/internal/cache"
)

const (
	processedPrefix = "processed" // 已生成摘要的文件
	skippedPrefix   = "skipped"   // 本次运行中判定为不支持的文件
)

// ProcessedSet 已生成摘要的原始文件名集合
// 条目在进程生命周期内永不过期，只会增加不会移除
type ProcessedSet struct {
	store cache.Cache
}

// NewProcessedSet 创建集合，store为nil时使用永不过期的内存缓存
func NewProcessedSet(store cache.Cache) (*ProcessedSet, error) {
	if store == nil {
		var err error
		store, err = cache.NewCache(cache.DefaultConfig())
		if err != nil {
			return nil, err
		}
	}
	return &ProcessedSet{store: store}, nil
}

// Add 标记文件已处理
func (p *ProcessedSet) Add(name string) error {
	return p.store.Set(cache.GenerateCacheKey(processedPrefix, name), "1", cache.NoExpiration)
}

// Contains 文件是否已处理
func (p *ProcessedSet) Contains(name string) (bool, error) {
	_, found, err := p.store.Get(cache.GenerateCacheKey(processedPrefix, name))
	return found, err
}

// MarkSkipped 记录不支持的文件，避免每轮重复检测和记录日志
func (p *ProcessedSet) MarkSkipped(name string) error {
	return p.store.Set(cache.GenerateCacheKey(skippedPrefix, name), "1", cache.NoExpiration)
}

// IsSkipped 文件是否已被判定为不支持
func (p *ProcessedSet) IsSkipped(name string) (bool, error) {
	_, found, err := p.store.Get(cache.GenerateCacheKey(skippedPrefix, name))
	return found, err
}

// Names 返回所有已处理的文件名(有序)
func (p *ProcessedSet) Names() ([]string, error) {
	prefix := processedPrefix + ":"
	keys, err := p.store.Keys(prefix)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, prefix))
	}
	return names, nil
}

// Len 已处理的文件数量
func (p *ProcessedSet) Len() int {
	names, err := p.Names()
	if err != nil {
		return 0
	}
	return len(names)
}
