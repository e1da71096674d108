package model

import "time"

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// SummaryInfo 摘要信息
type SummaryInfo struct {
	FileName    string    `json:"file_name"`    // 原始文件名
	SummaryName string    `json:"summary_name"` // 摘要文件名
	Size        int64     `json:"size"`         // 摘要大小(字节)
	UpdatedAt   time.Time `json:"updated_at"`   // 生成时间
}

// SummaryListResponse 摘要列表响应
type SummaryListResponse struct {
	Total     int           `json:"total"`     // 总数量
	Summaries []SummaryInfo `json:"summaries"` // 摘要列表
}
