package document

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize 默认分块大小（字符数）
const DefaultChunkSize = 3000

// SplitterConfig 分段器配置
type SplitterConfig struct {
	ChunkSize int // 分块大小（按字符数）
}

// DefaultSplitterConfig 返回默认分段器配置
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize: DefaultChunkSize,
	}
}

// TextSplitter 按段落累积的文本分段器
// 段落之间以换行分隔，单个超长段落不会被拆开
type TextSplitter struct {
	config SplitterConfig
}

// NewTextSplitter 创建新的文本分段器
func NewTextSplitter(config SplitterConfig) *TextSplitter {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	return &TextSplitter{
		config: config,
	}
}

// ChunkSize 返回分块大小
func (s *TextSplitter) ChunkSize() int {
	return s.config.ChunkSize
}

// Split 将文本分割成有序的分块
func (s *TextSplitter) Split(text string) ([]Content, error) {
	if s.config.ChunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size: %d", s.config.ChunkSize)
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentLen = 0
	}

	for _, p := range strings.Split(text, "\n") {
		pLen := utf8.RuneCountInString(p)
		if currentLen+pLen+1 > s.config.ChunkSize {
			flush()
		}
		current.WriteString(p)
		current.WriteString("\n")
		currentLen += pLen + 1
	}
	flush()

	contents := make([]Content, 0, len(chunks))
	for i, chunk := range chunks {
		contents = append(contents, Content{
			Text:  chunk,
			Index: i,
		})
	}

	return contents, nil
}
