package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 SUMMARIZER_LLM_API_KEY
const EnvPrefix = "SUMMARIZER"

// Config 应用程序配置结构体
type Config struct {
	Watch    WatchConfig    `mapstructure:"watch"`
	Storage  StorageConfig  `mapstructure:"storage"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Document DocumentConfig `mapstructure:"document"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
}

// WatchConfig 目录监听配置
type WatchConfig struct {
	BaseDir     string        `mapstructure:"base_dir"`                      // 相对路径的基准目录，默认为可执行文件所在目录
	Dir         string        `mapstructure:"dir" validate:"required"`       // 监听目录
	Interval    time.Duration `mapstructure:"interval" validate:"min=0"`     // 轮询间隔，须为整秒且不小于1s
	Notify      bool          `mapstructure:"notify"`                        // 是否监听文件系统事件
	SettleDelay time.Duration `mapstructure:"settle_delay" validate:"min=0"` // 文件修改后的静置时间
	FailFast    bool          `mapstructure:"fail_fast"`                     // 任一文件失败即退出
}

// StorageConfig 摘要存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type" validate:"oneof=local minio"`          // 存储类型：local 或 minio
	Path      string `mapstructure:"path" validate:"required_if=Type local"`     // 本地输出目录
	Bucket    string `mapstructure:"bucket" validate:"required_if=Type minio"`   // MinIO桶名称
	Prefix    string `mapstructure:"prefix"`                                     // MinIO对象前缀
	Endpoint  string `mapstructure:"endpoint" validate:"required_if=Type minio"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// LLMConfig 大语言模型配置
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=openai tongyi"` // 提供商
	Model       string        `mapstructure:"model" validate:"required"`               // 模型名称
	APIKey      string        `mapstructure:"api_key"`                                 // API密钥
	Endpoint    string        `mapstructure:"endpoint"`                                // API端点，为空时使用提供商默认值
	MaxTokens   int           `mapstructure:"max_tokens" validate:"min=0"`             // 最大生成token数量，0表示不限制
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`      // 采样温度，0表示使用模型默认值
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=0"`                // 单次请求超时，0表示不限制
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0"`            // 最大重试次数
}

// DocumentConfig 文档处理配置
type DocumentConfig struct {
	ChunkSize         int    `mapstructure:"chunk_size" validate:"min=1"`                   // 分块大小(字符)
	UnsupportedPolicy string `mapstructure:"unsupported_policy" validate:"oneof=text skip"` // 非PDF文件的处理策略
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format     string `mapstructure:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file"`        // 日志文件，为空时只输出到标准错误
	MaxSize    int    `mapstructure:"max_size"`    // 单个日志文件大小(MB)
	MaxBackups int    `mapstructure:"max_backups"` // 保留的旧日志数量
	MaxAge     int    `mapstructure:"max_age"`     // 旧日志保留天数
}

// ServerConfig 状态接口配置
type ServerConfig struct {
	Enable bool   `mapstructure:"enable"`                                   // 是否启动状态接口
	Host   string `mapstructure:"host"`                                     // 服务器主机
	Port   int    `mapstructure:"port" validate:"min=1,max=65535"`          // 服务器端口
	Mode   string `mapstructure:"mode" validate:"oneof=debug release test"` // gin运行模式
}

// Load 从文件和环境变量加载配置
// configPath为空时只使用默认值和环境变量；显式指定的文件不存在时返回错误
func Load(configPath string) (*Config, error) {
	var config Config

	// 初始化viper
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	}

	// 支持环境变量覆盖
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 解析配置到结构体
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	processEnvironmentVariables(&config)

	if err := config.ResolvePaths(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// envRefPattern 匹配 ${VAR} 形式的环境变量引用
var envRefPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// expandEnvRef 展开 ${VAR}，变量未设置时返回空字符串
func expandEnvRef(value string) string {
	m := envRefPattern.FindStringSubmatch(value)
	if m == nil {
		return value
	}
	return os.Getenv(m[1])
}

// processEnvironmentVariables 处理密钥类配置项中的环境变量引用
func processEnvironmentVariables(cfg *Config) {
	cfg.LLM.APIKey = expandEnvRef(cfg.LLM.APIKey)
	cfg.Storage.AccessKey = expandEnvRef(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = expandEnvRef(cfg.Storage.SecretKey)
}

// ResolvePaths 将相对路径解析为基于 watch.base_dir 的绝对路径
func (c *Config) ResolvePaths() error {
	if c.Watch.BaseDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %v", err)
		}
		c.Watch.BaseDir = filepath.Dir(exe)
	}

	base, err := filepath.Abs(c.Watch.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base dir: %v", err)
	}
	c.Watch.BaseDir = base

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	c.Watch.Dir = resolve(c.Watch.Dir)
	if c.Storage.Type == "local" {
		c.Storage.Path = resolve(c.Storage.Path)
	}
	c.Log.File = resolve(c.Log.File)
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %v", err)
	}

	if c.Watch.Interval != 0 && (c.Watch.Interval < time.Second || c.Watch.Interval%time.Second != 0) {
		return fmt.Errorf("invalid config: watch.interval must be a whole number of seconds >= 1s, got %s", c.Watch.Interval)
	}

	if c.Storage.Type == "local" && c.Watch.Dir == c.Storage.Path {
		return errors.New("invalid config: watch.dir and storage.path must differ")
	}
	return nil
}

// Address 状态接口监听地址
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 监听默认配置
	v.SetDefault("watch.base_dir", "")
	v.SetDefault("watch.dir", "watch")
	v.SetDefault("watch.interval", "2s")
	v.SetDefault("watch.notify", false)
	v.SetDefault("watch.settle_delay", "0s")
	v.SetDefault("watch.fail_fast", false)

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "summaries")
	v.SetDefault("storage.bucket", "summaries")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", false)

	// LLM默认配置
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.temperature", 0)
	v.SetDefault("llm.timeout", "0s")
	v.SetDefault("llm.max_retries", 2)

	// 文档处理默认配置
	v.SetDefault("document.chunk_size", 3000)
	v.SetDefault("document.unsupported_policy", "text")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)

	// 状态接口默认配置
	v.SetDefault("server.enable", false)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
}
