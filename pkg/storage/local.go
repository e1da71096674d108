package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// tempPrefix 写入过程中临时文件的前缀，List时会被忽略
const tempPrefix = ".tmp-"

// LocalStorage 本地文件存储实现
type LocalStorage struct {
	basePath string // 基础存储路径
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	Path string // 本地存储路径
}

// NewLocalStorage 创建本地存储实例
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	// 确保路径是绝对路径
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %v", err)
	}

	// 确保目录存在
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %v", err)
	}

	return &LocalStorage{
		basePath: absPath,
	}, nil
}

// BasePath 返回存储目录
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// Save 保存文件到本地存储
// 先写入临时文件再重命名，避免留下不完整的摘要
func (s *LocalStorage) Save(reader io.Reader, name string) (FileInfo, error) {
	if !validName(name) {
		return FileInfo{}, fmt.Errorf("invalid file name: %q", name)
	}

	tmp, err := os.CreateTemp(s.basePath, tempPrefix+"*")
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create file: %v", err)
	}
	tmpPath := tmp.Name()

	size, err := io.Copy(tmp, reader)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return FileInfo{}, fmt.Errorf("failed to write file: %v", err)
	}

	filePath := filepath.Join(s.basePath, name)
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return FileInfo{}, fmt.Errorf("failed to rename file: %v", err)
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to stat file: %v", err)
	}

	return FileInfo{
		Name:     name,
		Size:     size,
		MimeType: getMimeType(name),
		Path:     filePath,
		ModTime:  stat.ModTime(),
	}, nil
}

// Get 获取文件内容
func (s *LocalStorage) Get(name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid file name: %q", name)
	}

	file, err := os.Open(filepath.Join(s.basePath, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open file: %v", err)
	}

	return file, nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(name string) error {
	if !validName(name) {
		return fmt.Errorf("invalid file name: %q", name)
	}

	if err := os.Remove(filepath.Join(s.basePath, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete file: %v", err)
	}

	return nil
}

// List 列出存储目录下的所有普通文件，按文件名排序
func (s *LocalStorage) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %v", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// 列出与读取之间文件可能被删除
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat file: %v", err)
		}

		files = append(files, FileInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			MimeType: getMimeType(entry.Name()),
			Path:     filepath.Join(s.basePath, entry.Name()),
			ModTime:  info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(name string) (bool, error) {
	if !validName(name) {
		return false, fmt.Errorf("invalid file name: %q", name)
	}

	info, err := os.Stat(filepath.Join(s.basePath, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
