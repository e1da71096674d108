package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage MinIO存储实现
// 所有摘要以 prefix/name 的形式平铺在同一个存储桶中
type MinioStorage struct {
	client     *minio.Client // MinIO客户端
	bucketName string        // 存储桶名称
	prefix     string        // 对象名前缀，为空或以"/"结尾
}

// MinioConfig MinIO存储配置
type MinioConfig struct {
	Endpoint  string // MinIO服务端点
	AccessKey string // 访问密钥ID
	SecretKey string // 秘密访问密钥
	UseSSL    bool   // 是否使用SSL
	Bucket    string // 存储桶名称
	Prefix    string // 对象名前缀
}

// NewMinioStorage 创建MinIO存储实例
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	// 创建MinIO客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	// 检查存储桶是否存在，不存在则创建
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %v", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %v", err)
		}
	}

	return &MinioStorage{
		client:     client,
		bucketName: cfg.Bucket,
		prefix:     normalizePrefix(cfg.Prefix),
	}, nil
}

// normalizePrefix 去掉首部的"/"并保证非空前缀以"/"结尾
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// objectName 文件名对应的对象名
func (s *MinioStorage) objectName(name string) string {
	return s.prefix + name
}

// Save 保存文件到MinIO存储
func (s *MinioStorage) Save(reader io.Reader, name string) (FileInfo, error) {
	if !validName(name) {
		return FileInfo{}, fmt.Errorf("invalid file name: %q", name)
	}

	// 摘要文件较小，读入内存以获得准确大小
	content, err := io.ReadAll(reader)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to read file content: %v", err)
	}

	objectName := s.objectName(name)
	contentType := getMimeType(name)

	info, err := s.client.PutObject(
		context.Background(),
		s.bucketName,
		objectName,
		bytes.NewReader(content),
		int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to upload file: %v", err)
	}

	return FileInfo{
		Name:     name,
		Size:     int64(len(content)),
		MimeType: contentType,
		Path:     objectName,
		ModTime:  info.LastModified,
	}, nil
}

// Get 获取MinIO中的文件
func (s *MinioStorage) Get(name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid file name: %q", name)
	}

	// GetObject是惰性的，先Stat确认对象存在
	if _, err := s.stat(name); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(
		context.Background(),
		s.bucketName,
		s.objectName(name),
		minio.GetObjectOptions{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %v", err)
	}

	return obj, nil
}

// Delete 从MinIO中删除文件
func (s *MinioStorage) Delete(name string) error {
	if !validName(name) {
		return fmt.Errorf("invalid file name: %q", name)
	}

	if _, err := s.stat(name); err != nil {
		return err
	}

	err := s.client.RemoveObject(
		context.Background(),
		s.bucketName,
		s.objectName(name),
		minio.RemoveObjectOptions{},
	)
	if err != nil {
		return fmt.Errorf("failed to delete object: %v", err)
	}

	return nil
}

// List 列出前缀下的所有文件(不递归)
func (s *MinioStorage) List() ([]FileInfo, error) {
	var files []FileInfo

	objectCh := s.client.ListObjects(
		context.Background(),
		s.bucketName,
		minio.ListObjectsOptions{Prefix: s.prefix, Recursive: false},
	)

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %v", object.Err)
		}

		// 非递归列举时子目录以"/"结尾的公共前缀出现
		if strings.HasSuffix(object.Key, "/") {
			continue
		}

		name := path.Base(object.Key)
		files = append(files, FileInfo{
			Name:     name,
			Size:     object.Size,
			MimeType: getMimeType(name),
			Path:     object.Key,
			ModTime:  object.LastModified,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Exists 检查MinIO中是否存在指定文件
func (s *MinioStorage) Exists(name string) (bool, error) {
	if !validName(name) {
		return false, fmt.Errorf("invalid file name: %q", name)
	}

	_, err := s.stat(name)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// stat 获取对象元数据，对象不存在时返回ErrNotFound
func (s *MinioStorage) stat(name string) (minio.ObjectInfo, error) {
	info, err := s.client.StatObject(context.Background(), s.bucketName, s.objectName(name), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return minio.ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return minio.ObjectInfo{}, fmt.Errorf("failed to stat object: %v", err)
	}
	return info, nil
}
