package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-summary-agent/internal/document"
	"github.com/fyerfyer/doc-summary-agent/internal/services"
)

// DefaultInterval 默认轮询间隔
const DefaultInterval = 2 * time.Second

// Processor 处理单个文件并生成摘要
// services.SummaryService 实现了该接口
type Processor interface {
	ProcessFile(ctx context.Context, filePath string) (*services.FileResult, error)
	SummarizedFiles() ([]string, error)
}

// Status 单个文件在一轮处理中的结果状态
type Status string

const (
	StatusProcessed Status = "processed" // 已生成摘要
	StatusFailed    Status = "failed"    // 处理失败，下一轮重试
	StatusSkipped   Status = "skipped"   // 不支持的文件，不再重试
	StatusDeferred  Status = "deferred"  // 文件仍在写入，推迟到下一轮
)

// Result 单个文件的处理结果
type Result struct {
	JobID      string        // 本次处理的唯一标识
	FileName   string        // 原始文件名
	OutputName string        // 摘要文件名
	Status     Status        // 结果状态
	Err        error         // 失败原因
	ChunkCount int           // 分块数量
	Duration   time.Duration // 处理耗时
}

// Config 监听配置
type Config struct {
	Dir         string        // 监听目录
	Interval    time.Duration // 轮询间隔，cron按整秒调度
	Notify      bool          // 是否同时监听文件系统事件
	SettleDelay time.Duration // 修改时间距今不足该值的文件推迟处理
	FailFast    bool          // 任一文件失败即终止
}

// Watcher 目录监听器
// 每一轮对比监听目录与已处理集合，依次处理缺少摘要的文件
type Watcher struct {
	cfg       Config
	processor Processor
	processed *ProcessedSet
	logger    *logrus.Logger
	now       func() time.Time
}

// Option 监听器配置选项
type Option func(*Watcher)

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		if now != nil {
			w.now = now
		}
	}
}

// New 创建目录监听器
func New(cfg Config, processor Processor, processed *ProcessedSet, opts ...Option) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	w := &Watcher{
		cfg:       cfg,
		processor: processor,
		processed: processed,
		logger:    logrus.New(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Processed 返回已处理集合
func (w *Watcher) Processed() *ProcessedSet {
	return w.processed
}

// Seed 用存储中已有的摘要填充已处理集合
func (w *Watcher) Seed() error {
	names, err := w.processor.SummarizedFiles()
	if err != nil {
		return fmt.Errorf("failed to load existing summaries: %w", err)
	}

	for _, name := range names {
		if err := w.processed.Add(name); err != nil {
			return fmt.Errorf("failed to mark %s as processed: %w", name, err)
		}
	}

	w.logger.WithField("count", len(names)).Info("Loaded already processed files")
	return nil
}

// Reconcile 执行一轮处理
// 默认单个文件失败只记录在结果中，文件保持未处理状态以便下一轮重试。
// 返回的错误表示目录无法列出、上下文已取消，或FailFast模式下的首个文件错误。
func (w *Watcher) Reconcile(ctx context.Context) ([]Result, error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch directory: %w", err)
	}

	var results []Result
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		name := entry.Name()
		if done, err := w.processed.Contains(name); err != nil || done {
			continue
		}
		if skipped, err := w.processed.IsSkipped(name); err != nil || skipped {
			continue
		}

		path := filepath.Join(w.cfg.Dir, name)
		// Stat会跟随符号链接
		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				w.logger.WithError(err).WithField("file", name).Warn("Failed to stat file")
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		if w.cfg.SettleDelay > 0 && w.now().Sub(info.ModTime()) < w.cfg.SettleDelay {
			w.logger.WithField("file", name).Debug("File recently modified, deferring")
			results = append(results, Result{FileName: name, Status: StatusDeferred})
			continue
		}

		res := w.processOne(ctx, path)
		results = append(results, res)

		if res.Status == StatusFailed {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			if w.cfg.FailFast {
				return results, res.Err
			}
		}
	}

	return results, nil
}

// processOne 处理单个文件，提取阶段的panic会被转换为失败结果
func (w *Watcher) processOne(ctx context.Context, path string) (res Result) {
	name := filepath.Base(path)
	res = Result{JobID: uuid.New().String(), FileName: name}
	start := time.Now()

	log := w.logger.WithFields(logrus.Fields{
		"job_id": res.JobID,
		"file":   name,
	})

	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("panic while processing %s: %v", name, r)
		}
		res.Duration = time.Since(start)

		switch res.Status {
		case StatusFailed:
			log.WithError(res.Err).Error("Failed to process file, will retry")
		case StatusSkipped:
			log.WithError(res.Err).Warn("Skipping unsupported file")
		}
	}()

	out, err := w.processor.ProcessFile(ctx, path)
	if err != nil {
		res.Err = err
		res.Status = StatusFailed
		if errors.Is(err, document.ErrUnsupported) {
			res.Status = StatusSkipped
			if markErr := w.processed.MarkSkipped(name); markErr != nil {
				log.WithError(markErr).Warn("Failed to remember skipped file")
			}
		}
		return res
	}

	res.Status = StatusProcessed
	res.OutputName = out.OutputName
	if out.Summary != nil {
		res.ChunkCount = out.Summary.ChunkCount
	}
	if err := w.processed.Add(name); err != nil {
		log.WithError(err).Warn("Failed to mark file as processed")
	}
	return res
}

// Run 持续运行直到ctx被取消
// 启动时先加载已有摘要并立即执行一轮，之后由定时器和文件系统事件触发。
// 触发信号合并到单槽通道中，由当前goroutine串行处理。
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}
	if err := w.Seed(); err != nil {
		return err
	}

	trigger := make(chan struct{}, 1)
	signal := func() {
		select {
		case trigger <- struct{}{}:
		default:
			// 已有待处理的触发
		}
	}

	c := cron.New(cron.WithLogger(cron.PrintfLogger(w.logger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", w.cfg.Interval), signal); err != nil {
		return fmt.Errorf("failed to schedule poll interval %s: %w", w.cfg.Interval, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	if w.cfg.Notify {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		defer fsw.Close()

		if err := fsw.Add(w.cfg.Dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", w.cfg.Dir, err)
		}
		go w.forwardEvents(ctx, fsw, signal)
	}

	w.logger.WithFields(logrus.Fields{
		"dir":      w.cfg.Dir,
		"interval": w.cfg.Interval.String(),
		"notify":   w.cfg.Notify,
	}).Info("File summarizer agent running")

	signal()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopped")
			return nil
		case <-trigger:
			results, err := w.Reconcile(ctx)
			if ctx.Err() != nil {
				w.logger.Info("Watcher stopped")
				return nil
			}
			if err != nil {
				if w.cfg.FailFast {
					return err
				}
				w.logger.WithError(err).Error("Reconcile pass failed")
			}
			w.logPass(results)
		}
	}
}

// forwardEvents 把目录中的创建、写入和重命名事件转换为触发信号
func (w *Watcher) forwardEvents(ctx context.Context, fsw *fsnotify.Watcher, signal func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				w.logger.WithField("file", filepath.Base(event.Name)).Debug("Detected file change")
				signal()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("File watcher error")
		}
	}
}

// logPass 汇总一轮的处理结果
func (w *Watcher) logPass(results []Result) {
	counts := make(map[Status]int)
	for _, r := range results {
		counts[r.Status]++
	}
	if counts[StatusProcessed]+counts[StatusFailed]+counts[StatusSkipped] == 0 {
		return
	}

	w.logger.WithFields(logrus.Fields{
		"processed": counts[StatusProcessed],
		"failed":    counts[StatusFailed],
		"skipped":   counts[StatusSkipped],
		"deferred":  counts[StatusDeferred],
	}).Info("Reconcile pass finished")
}
