package document

import (
	"fmt"
	"os"
	"strings"
)

// PlainTextExtractor 纯文本提取器
type PlainTextExtractor struct{}

// NewPlainTextExtractor 创建一个新的纯文本提取器
func NewPlainTextExtractor() Extractor {
	return &PlainTextExtractor{}
}

// Extract 读取文件并按UTF-8解码，丢弃无法解码的字节
func (p *PlainTextExtractor) Extract(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}

	return strings.ToValidUTF8(string(content), ""), nil
}
