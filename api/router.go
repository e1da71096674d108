package api

import (
	"github.com/fyerfyer/doc-summary-agent/api/handler"
	"github.com/fyerfyer/doc-summary-agent/api/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// 只提供只读的状态与摘要查询接口
func SetupRouter(summaryHandler *handler.SummaryHandler) *gin.Engine {
	router := gin.New()

	// 应用全局中间件
	router.Use(gin.Recovery())
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())

	api := router.Group("/api")
	{
		// 健康检查 - GET /api/health
		api.GET("/health", summaryHandler.Health)

		summaryGroup := api.Group("/summaries")
		{
			// 摘要列表 - GET /api/summaries
			summaryGroup.GET("", summaryHandler.ListSummaries)

			// 摘要内容 - GET /api/summaries/:name
			summaryGroup.GET("/:name", summaryHandler.GetSummary)
		}
	}

	return router
}
