package api

import (
	"os"
	"path/filepath"

	"github.com/M0hammedHaris/snaptrace/report"
	"github.com/M0hammedHaris/snaptrace/store"
	"github.com/M0hammedHaris/snaptrace/web/transport"
	"github.com/gin-gonic/gin"
)

// DownloadReport 下载最近一次运行生成的文本审计报告。
func (a *API) DownloadReport(c *gin.Context) {
	path := filepath.Join(a.Conf.OutputPath, "matching_report.txt")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			transport.NotFound(c, "尚未生成匹配报告")
			return
		}
		transport.InternalServerError(c, err.Error())
		return
	}
	transport.SendFile(c, "matching_report.txt", "text/plain; charset=utf-8", content)
}

// ExportRunXLSX 把指定运行的裁决记录导出为 XLSX。
func (a *API) ExportRunXLSX(c *gin.Context) {
	runID := c.Param("id")
	decisions, err := a.Store.GetDecisions(c.Request.Context(), runID, store.DecisionQuery{})
	if err != nil {
		transport.InternalServerError(c, err.Error())
		return
	}
	if len(decisions) == 0 {
		transport.NotFound(c, "该运行没有裁决记录")
		return
	}

	content, err := report.ExportXLSX(decisions)
	if err != nil {
		transport.InternalServerError(c, err.Error())
		return
	}
	transport.SendFile(c, "matching_report_"+runID+".xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}
