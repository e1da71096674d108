package handler

import (
	"net/http"
	"strings"

	"github.com/fyerfyer/doc-summary-agent/api/middleware"
	"github.com/fyerfyer/doc-summary-agent/api/model"
	"github.com/fyerfyer/doc-summary-agent/internal/services"
	"github.com/fyerfyer/doc-summary-agent/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/sirupsen/logrus"
)

// SummaryReader 读取已生成的摘要
// services.SummaryService 实现了该接口
type SummaryReader interface {
	ListSummaries() ([]services.SummaryEntry, error)
	GetSummary(fileName string) (string, error)
}

// SummaryHandler 处理摘要查询相关的API请求
type SummaryHandler struct {
	summaries SummaryReader  // 摘要读取
	logger    *logrus.Logger // 日志记录器
}

// NewSummaryHandler 创建摘要处理器
func NewSummaryHandler(summaries SummaryReader) *SummaryHandler {
	return &SummaryHandler{
		summaries: summaries,
		logger:    middleware.GetLogger(),
	}
}

// Health 健康检查
// GET /api/health
func (h *SummaryHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListSummaries 列出所有摘要
// GET /api/summaries
func (h *SummaryHandler) ListSummaries(c *gin.Context) {
	entries, err := h.summaries.ListSummaries()
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to list summaries", err.Error()))
		return
	}

	items := make([]model.SummaryInfo, 0, len(entries))
	for _, e := range entries {
		items = append(items, model.SummaryInfo{
			FileName:    e.FileName,
			SummaryName: e.SummaryName,
			Size:        e.Size,
			UpdatedAt:   e.ModTime,
		})
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SummaryListResponse{
		Total:     len(items),
		Summaries: items,
	}))
}

// GetSummary 获取原始文件对应的摘要
// GET /api/summaries/:name?format=markdown|html
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	name := c.Param("name")
	if name == "" || strings.ContainsAny(name, `/\`) {
		middleware.HandleError(c, middleware.NewValidationError("Invalid file name", name))
		return
	}

	format := c.DefaultQuery("format", "markdown")
	if format != "markdown" && format != "html" {
		middleware.HandleError(c, middleware.NewValidationError("Unsupported format", format))
		return
	}

	content, err := h.summaries.GetSummary(name)
	if err != nil {
		if storage.IsNotFound(err) {
			middleware.HandleError(c, middleware.NewNotFoundError("Summary not found"))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("Failed to read summary", err.Error()))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"file":   name,
		"format": format,
	}).Debug("Serving summary")

	if format == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", renderHTML(content))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(content))
}

// renderHTML 将Markdown摘要渲染为HTML片段
func renderHTML(content string) []byte {
	mdParser := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.ToHTML([]byte(content), mdParser, renderer)
}
