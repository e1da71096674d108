package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// OpenAIClient 基于langchaingo的OpenAI聊天补全客户端
type OpenAIClient struct {
	llm         llms.Model // 底层模型
	model       string     // 模型名称
	maxTokens   int        // 最大生成Token数
	temperature float32    // 温度参数
}

// NewOpenAIClient 创建OpenAI客户端
// APIKey为空时由SDK自行读取OPENAI_API_KEY环境变量
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	oaOpts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.APIKey != "" {
		oaOpts = append(oaOpts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		oaOpts = append(oaOpts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(oaOpts...)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, fmt.Sprintf("failed to create openai client: %v", err))
	}

	return newOpenAIClientWithModel(model, cfg), nil
}

func newOpenAIClientWithModel(model llms.Model, cfg *Config) *OpenAIClient {
	return &OpenAIClient{
		llm:         model,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Name 返回模型名称
func (c *OpenAIClient) Name() string {
	return c.model
}

// Chat 发送对话请求
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(toChatMessageType(m.Role), m.Content))
	}

	opts := applyChatOptions(c.maxTokens, c.temperature, options)
	var callOpts []llms.CallOption
	if opts.MaxTokens != nil {
		callOpts = append(callOpts, llms.WithMaxTokens(*opts.MaxTokens))
	}
	if opts.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(float64(*opts.Temperature)))
	}

	resp, err := c.llm.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, NewLLMError(ErrCodeTimeout, err.Error())
		}
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("API error: %v", err))
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	choice := resp.Choices[0]
	result := &Response{
		Text:       choice.Content,
		ModelName:  c.model,
		FinishTime: time.Now(),
	}
	if total, ok := choice.GenerationInfo["TotalTokens"].(int); ok {
		result.TokenCount = total
	}

	return result, nil
}

// toChatMessageType 将消息角色映射为langchaingo的消息类型
func toChatMessageType(role MessageRole) schema.ChatMessageType {
	switch role {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}

func init() {
	RegisterClient("openai", NewOpenAIClient)
}
