package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Extractor 文本提取器接口
// 负责将不同格式的文件转换为纯文本
type Extractor interface {
	// Extract 提取文件的文本内容
	Extract(filePath string) (string, error)
}

// ContentType 表示文件的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// Unsupported 无法提取文本的类型
	Unsupported ContentType = "unsupported"
)

// UnsupportedPolicy 非PDF文件的处理策略
type UnsupportedPolicy string

const (
	// PolicyText 所有非PDF文件都按文本解码
	PolicyText UnsupportedPolicy = "text"
	// PolicySkip 嗅探文件内容，跳过二进制文件
	PolicySkip UnsupportedPolicy = "skip"
)

// ErrUnsupported 文件内容无法作为文本处理
var ErrUnsupported = errors.New("unsupported document type")

// DetectContentType 根据文件扩展名检测内容类型
func DetectContentType(filePath string) ContentType {
	if strings.ToLower(filepath.Ext(filePath)) == ".pdf" {
		return PDF
	}
	return PlainText
}

// NewExtractor 根据文件类型和策略创建对应的提取器
func NewExtractor(filePath string, policy UnsupportedPolicy) (Extractor, error) {
	contentType := DetectContentType(filePath)
	if contentType == PlainText && policy == PolicySkip {
		var err error
		contentType, err = sniffContentType(filePath)
		if err != nil {
			return nil, err
		}
	}

	switch contentType {
	case PDF:
		return NewPDFExtractor(), nil
	case PlainText:
		return NewPlainTextExtractor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(filePath))
	}
}

// sniffContentType 通过文件头判断是否为文本
func sniffContentType(filePath string) (ContentType, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return Unsupported, fmt.Errorf("failed to detect content type: %w", err)
	}

	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return PlainText, nil
		}
	}
	return Unsupported, nil
}

// Content 表示一个文本分块
type Content struct {
	Text  string // 分块文本内容
	Index int    // 分块索引
}

// Splitter 文本分段器接口
type Splitter interface {
	// Split 将文本分割成有序的分块
	Split(text string) ([]Content, error)
}
