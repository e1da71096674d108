package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-summary-agent/api"
	"github.com/fyerfyer/doc-summary-agent/api/handler"
	"github.com/fyerfyer/doc-summary-agent/api/middleware"
	appconfig "github.com/fyerfyer/doc-summary-agent/config"
	"github.com/fyerfyer/doc-summary-agent/internal/document"
	"github.com/fyerfyer/doc-summary-agent/internal/llm"
	"github.com/fyerfyer/doc-summary-agent/internal/services"
	"github.com/fyerfyer/doc-summary-agent/internal/watcher"
	"github.com/fyerfyer/doc-summary-agent/pkg/storage"
)

// app 组装好的运行时依赖
type app struct {
	cfg     *appconfig.Config
	logger  *logrus.Logger
	store   storage.Storage
	service *services.SummaryService
	closer  io.Closer
}

// Close 释放日志文件等资源
func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig() (*appconfig.Config, error) {
	cfg, err := appconfig.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// setupApp 根据配置创建日志、存储、LLM客户端和摘要服务
func setupApp(cfg *appconfig.Config) (*app, error) {
	logger, closer, err := setupLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := setupStorage(cfg.Storage)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client, err := setupLLM(cfg.LLM)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	service := setupService(cfg, store, client, logger)

	logger.WithFields(logrus.Fields{
		"provider": cfg.LLM.Provider,
		"model":    client.Name(),
		"storage":  cfg.Storage.Type,
	}).Debug("Components initialized")

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		service: service,
		closer:  closer,
	}, nil
}

// setupLogger 设置日志记录器
func setupLogger(cfg appconfig.LogConfig) (*logrus.Logger, io.Closer, error) {
	closer, err := middleware.Setup(middleware.LogOptions{
		Level:      cfg.Level,
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
	})
	if err != nil {
		return nil, nil, err
	}
	return middleware.GetLogger(), closer, nil
}

// setupStorage 设置摘要存储
func setupStorage(cfg appconfig.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "minio":
		return storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
		})
	case "local", "":
		return storage.NewLocalStorage(storage.LocalConfig{Path: cfg.Path})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// setupLLM 设置大语言模型客户端
func setupLLM(cfg appconfig.LLMConfig) (llm.Client, error) {
	opts := []llm.Option{
		llm.WithModel(cfg.Model),
		llm.WithTimeout(cfg.Timeout),
		llm.WithMaxRetries(cfg.MaxRetries),
		llm.WithMaxTokens(cfg.MaxTokens),
		llm.WithTemperature(cfg.Temperature),
	}
	if cfg.APIKey != "" {
		opts = append(opts, llm.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, llm.WithBaseURL(cfg.Endpoint))
	}

	return llm.NewClient(cfg.Provider, opts...)
}

// setupService 创建摘要服务
func setupService(cfg *appconfig.Config, store storage.Storage, client llm.Client, logger *logrus.Logger) *services.SummaryService {
	splitter := document.NewTextSplitter(document.SplitterConfig{ChunkSize: cfg.Document.ChunkSize})

	return services.NewSummaryService(
		store,
		splitter,
		llm.NewSummarizer(client),
		services.WithLogger(logger),
		services.WithUnsupportedPolicy(document.UnsupportedPolicy(cfg.Document.UnsupportedPolicy)),
	)
}

// setupWatcher 创建目录监听器
func setupWatcher(a *app) (*watcher.Watcher, error) {
	processed, err := watcher.NewProcessedSet(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize processed set: %w", err)
	}

	return watcher.New(watcher.Config{
		Dir:         a.cfg.Watch.Dir,
		Interval:    a.cfg.Watch.Interval,
		Notify:      a.cfg.Watch.Notify,
		SettleDelay: a.cfg.Watch.SettleDelay,
		FailFast:    a.cfg.Watch.FailFast,
	}, a.service, processed, watcher.WithLogger(a.logger)), nil
}

// startServer 在后台启动状态接口，返回关闭函数
func startServer(a *app) func() {
	gin.SetMode(a.cfg.Server.Mode)
	router := api.SetupRouter(handler.NewSummaryHandler(a.service))

	srv := &http.Server{
		Addr:              a.cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Infof("Status API listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("Status API stopped")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("Failed to shut down status API")
		}
	}
}
