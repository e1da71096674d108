package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyerfyer/doc-summary-agent/internal/document"
	"github.com/fyerfyer/doc-summary-agent/internal/llm"
	"github.com/fyerfyer/doc-summary-agent/pkg/storage"
	"github.com/sirupsen/logrus"
)

// BlockSummarizer 对单个文本块发起一次摘要请求
// llm.Summarizer 实现了该接口
type BlockSummarizer interface {
	SummarizeBlock(ctx context.Context, text, purpose string) (string, error)
}

// ExtractorFactory 根据文件路径选择文本提取器
type ExtractorFactory func(filePath string, policy document.UnsupportedPolicy) (document.Extractor, error)

// Summary 一次分层摘要的结果
type Summary struct {
	Text           string   // 最终摘要
	ChunkCount     int      // 分块数量
	ChunkSummaries []string // 各分块的摘要，按文档顺序
}

// FileResult 单个文件的处理结果
type FileResult struct {
	FileName   string           // 原始文件名
	OutputName string           // 摘要文件名
	Summary    *Summary         // 摘要内容
	Output     storage.FileInfo // 存储中的摘要文件
	Duration   time.Duration    // 处理耗时
}

// SummaryEntry 已生成的摘要条目
type SummaryEntry struct {
	FileName    string    `json:"file_name"`    // 原始文件名
	SummaryName string    `json:"summary_name"` // 摘要文件名
	Size        int64     `json:"size"`         // 摘要大小
	ModTime     time.Time `json:"mod_time"`     // 生成时间
}

// SummaryService 摘要服务
// 负责协调文本提取、分块、分层摘要和结果存储
type SummaryService struct {
	storage      storage.Storage            // 摘要存储
	splitter     document.Splitter          // 文本分块器
	summarizer   BlockSummarizer            // 单块摘要客户端
	newExtractor ExtractorFactory           // 提取器工厂
	policy       document.UnsupportedPolicy // 非PDF文件的处理策略
	logger       *logrus.Logger             // 日志记录器
}

// SummaryOption 摘要服务配置选项
type SummaryOption func(*SummaryService)

// NewSummaryService 创建摘要服务
func NewSummaryService(
	store storage.Storage,
	splitter document.Splitter,
	summarizer BlockSummarizer,
	opts ...SummaryOption,
) *SummaryService {
	srv := &SummaryService{
		storage:      store,
		splitter:     splitter,
		summarizer:   summarizer,
		newExtractor: document.NewExtractor,
		policy:       document.PolicyText,
		logger:       logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) SummaryOption {
	return func(s *SummaryService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithUnsupportedPolicy 设置非PDF文件的处理策略
func WithUnsupportedPolicy(policy document.UnsupportedPolicy) SummaryOption {
	return func(s *SummaryService) {
		if policy != "" {
			s.policy = policy
		}
	}
}

// WithExtractorFactory 替换提取器工厂
func WithExtractorFactory(factory ExtractorFactory) SummaryOption {
	return func(s *SummaryService) {
		if factory != nil {
			s.newExtractor = factory
		}
	}
}

// Summarize 对全文进行分层摘要
// 先逐块摘要，再把分块摘要按顺序用换行拼接后合并一次
func (s *SummaryService) Summarize(ctx context.Context, text string) (*Summary, error) {
	chunks, err := s.splitter.Split(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.logger.WithFields(logrus.Fields{
			"chunk": i + 1,
			"total": len(chunks),
			"chars": len([]rune(chunk.Text)),
		}).Info("Summarizing chunk")

		partial, err := s.summarizer.SummarizeBlock(ctx, chunk.Text, llm.PurposeChunk)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, partial)
	}

	s.logger.WithField("partials", len(partials)).Info("Combining chunk summaries")

	final, err := s.summarizer.SummarizeBlock(ctx, strings.Join(partials, "\n"), llm.PurposeCombine)
	if err != nil {
		return nil, fmt.Errorf("failed to combine summaries: %w", err)
	}

	return &Summary{
		Text:           final,
		ChunkCount:     len(chunks),
		ChunkSummaries: partials,
	}, nil
}

// SummarizeFile 提取文件文本并生成摘要，不写入存储
func (s *SummaryService) SummarizeFile(ctx context.Context, filePath string) (*Summary, error) {
	extractor, err := s.newExtractor(filePath, s.policy)
	if err != nil {
		return nil, err
	}

	text, err := extractor.Extract(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"file":  filepath.Base(filePath),
		"chars": len([]rune(text)),
	}).Debug("Text extracted")

	return s.Summarize(ctx, text)
}

// ProcessFile 处理单个文件：提取、摘要并保存为 <文件名>_summary.md
func (s *SummaryService) ProcessFile(ctx context.Context, filePath string) (*FileResult, error) {
	start := time.Now()
	fileName := filepath.Base(filePath)

	s.logger.WithField("file", fileName).Info("Processing file")

	summary, err := s.SummarizeFile(ctx, filePath)
	if err != nil {
		return nil, err
	}

	outputName := storage.SummaryName(fileName)
	info, err := s.storage.Save(strings.NewReader(summary.Text), outputName)
	if err != nil {
		return nil, fmt.Errorf("failed to save summary: %w", err)
	}

	result := &FileResult{
		FileName:   fileName,
		OutputName: outputName,
		Summary:    summary,
		Output:     info,
		Duration:   time.Since(start),
	}

	s.logger.WithFields(logrus.Fields{
		"file":     fileName,
		"output":   outputName,
		"chunks":   summary.ChunkCount,
		"duration": result.Duration.String(),
	}).Info("Saved summary")

	return result, nil
}

// ListSummaries 列出存储中所有符合命名约定的摘要
func (s *SummaryService) ListSummaries() ([]SummaryEntry, error) {
	files, err := s.storage.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}

	entries := make([]SummaryEntry, 0, len(files))
	for _, f := range files {
		original, ok := storage.OriginalName(f.Name)
		if !ok {
			continue
		}
		entries = append(entries, SummaryEntry{
			FileName:    original,
			SummaryName: f.Name,
			Size:        f.Size,
			ModTime:     f.ModTime,
		})
	}
	return entries, nil
}

// SummarizedFiles 返回已有摘要的原始文件名
func (s *SummaryService) SummarizedFiles() ([]string, error) {
	entries, err := s.ListSummaries()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.FileName)
	}
	return names, nil
}

// GetSummary 读取原始文件对应的摘要内容
func (s *SummaryService) GetSummary(fileName string) (string, error) {
	reader, err := s.storage.Get(storage.SummaryName(fileName))
	if err != nil {
		return "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read summary: %w", err)
	}
	return string(data), nil
}
