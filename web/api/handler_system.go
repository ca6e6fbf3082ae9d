package api

import (
	"os"
	"path/filepath"

	"github.com/M0hammedHaris/snaptrace/web/transport"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

// GetSystemStatus 返回导出目录的就绪状态与索引摘要。
func (a *API) GetSystemStatus(c *gin.Context) {
	exportPath := a.Loader.ExportPath()

	logPath := filepath.Join(exportPath, "chat_history", "json", "chat_history.json")
	_, logErr := os.Stat(logPath)

	mediaDirs, _ := filepath.Glob(filepath.Join(exportPath, "chat_media*"))

	status := gin.H{
		"export_path":    exportPath,
		"output_path":    a.Conf.OutputPath,
		"chat_log_found": logErr == nil,
		"media_dirs":     len(mediaDirs),
		"task_running":   a.Tasks.Running(),
	}

	// 索引已加载时附带消息规模
	if logErr == nil {
		if idx, err := a.Loader.Get(); err == nil {
			status["indexed_messages"] = len(idx.Messages)
			status["contacts"] = len(idx.Activity)
		}
	}
	transport.SendSuccess(c, status)
}

// UpdateConfig 更新导出/输出目录并持久化到配置文件。
func (a *API) UpdateConfig(c *gin.Context) {
	var req struct {
		ExportPath string `json:"export_path"`
		OutputPath string `json:"output_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		transport.BadRequest(c, "参数错误")
		return
	}
	if a.Tasks.Running() {
		transport.Conflict(c, "任务运行期间不能修改目录配置")
		return
	}

	if req.ExportPath != "" {
		if _, err := os.Stat(req.ExportPath); err != nil {
			transport.BadRequest(c, "导出目录不存在: "+req.ExportPath)
			return
		}
		a.Conf.ExportPath = req.ExportPath
		a.Loader.SetExportPath(req.ExportPath)
		viper.Set("EXPORT_PATH", req.ExportPath)
	}
	if req.OutputPath != "" {
		a.Conf.OutputPath = req.OutputPath
		viper.Set("OUTPUT_PATH", req.OutputPath)
	}
	if err := viper.WriteConfig(); err != nil {
		transport.InternalServerError(c, "保存配置失败: "+err.Error())
		return
	}
	transport.SendSuccess(c, gin.H{"status": "ok"})
}
