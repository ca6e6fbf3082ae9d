package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// setupRoutes 初始化所有应用程序路由。
func (s *Service) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		// 整理任务路由
		organize := v1.Group("/organize")
		{
			organize.POST("/start", s.api.StartOrganize)
			organize.GET("/status/:id", s.api.GetOrganizeStatus)
			organize.POST("/cancel/:id", s.api.CancelOrganize)
		}

		// 运行历史路由
		v1.GET("/runs", s.api.GetRuns)
		v1.GET("/runs/:id", s.api.GetRunByID)
		v1.GET("/runs/:id/decisions", s.api.GetRunDecisions)
		v1.GET("/runs/:id/report.xlsx", s.api.ExportRunXLSX)

		// 报告路由
		v1.GET("/report", s.api.DownloadReport)

		// 工具路由
		tools := v1.Group("/tools")
		{
			tools.POST("/verify", s.api.RunVerify)
			tools.POST("/dedup", s.api.RunDedup)
			tools.POST("/fix_timestamps", s.api.RunFixTimestamps)
		}

		// 系统路由
		system := v1.Group("/system")
		{
			system.GET("/status", s.api.GetSystemStatus)
			system.POST("/config", s.api.UpdateConfig)
			system.GET("/password/status", s.api.GetPasswordStatus)
			system.POST("/password/set", s.api.SetPassword)
			system.POST("/password/verify", s.api.VerifyPassword)
			system.POST("/password/disable", s.api.DisablePassword)
		}
	}

	// 健康检查
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
