package storage

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// SummarySuffix 摘要文件名后缀
const SummarySuffix = "_summary.md"

// ErrNotFound 文件不存在
var ErrNotFound = errors.New("file not found")

// FileInfo 文件元数据结构
type FileInfo struct {
	Name     string    // 文件名(存储内唯一键)
	Size     int64     // 文件大小(字节)
	MimeType string    // 文件MIME类型
	Path     string    // 内部存储路径(实现相关)
	ModTime  time.Time // 最后修改时间
}

// Storage 摘要文件存储接口
// 输出目录是扁平的，文件名即键
type Storage interface {
	// Save 保存文件并返回文件信息，同名文件会被覆盖
	Save(reader io.Reader, name string) (FileInfo, error)

	// Get 获取文件内容，不存在时返回ErrNotFound
	Get(name string) (io.ReadCloser, error)

	// Delete 删除文件
	Delete(name string) error

	// List 列出所有文件
	List() ([]FileInfo, error)

	// Exists 检查文件是否存在
	Exists(name string) (bool, error)
}

// SummaryName 返回原始文件对应的摘要文件名
// 例如 report.pdf -> report.pdf_summary.md
func SummaryName(original string) string {
	return filepath.Base(original) + SummarySuffix
}

// OriginalName 从摘要文件名恢复原始文件名
func OriginalName(summary string) (string, bool) {
	if !strings.HasSuffix(summary, SummarySuffix) {
		return "", false
	}
	stem := strings.TrimSuffix(summary, SummarySuffix)
	if stem == "" {
		return "", false
	}
	return stem, true
}

// validName 文件名不能包含路径分隔符
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

// getMimeType 简单根据文件扩展名判断MIME类型
func getMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return "text/markdown; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// IsNotFound 判断错误是否表示文件不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
