package llm

import (
	"context"
	"strings"
)

// SystemPrompt 摘要请求固定使用的系统提示词
const SystemPrompt = "You are a concise summarization assistant."

// 摘要请求的用途前缀
const (
	PurposeDefault = "Summarize the following text:"
	PurposeChunk   = "Summarize this part of the document:"
	PurposeCombine = "Combine these partial summaries into one overall, well-structured summary:"
)

// Summarizer 对单个文本块发起一次摘要请求
// 不做缓存，相同输入每次都会调用模型
type Summarizer struct {
	Client Client // 大模型客户端
}

// NewSummarizer 创建摘要客户端
func NewSummarizer(client Client) *Summarizer {
	return &Summarizer{Client: client}
}

// BuildMessages 构造摘要请求的消息列表
func BuildMessages(text, purpose string) []Message {
	return []Message{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: purpose + "\n\n" + text},
	}
}

// SummarizeBlock 以指定用途摘要一段文本，返回去除首尾空白的结果
func (s *Summarizer) SummarizeBlock(ctx context.Context, text, purpose string) (string, error) {
	if purpose == "" {
		purpose = PurposeDefault
	}

	resp, err := s.Client.Chat(ctx, BuildMessages(text, purpose))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Text), nil
}
