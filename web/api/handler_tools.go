package api

import (
	"github.com/M0hammedHaris/snaptrace/tools"
	"github.com/M0hammedHaris/snaptrace/web/transport"
	"github.com/gin-gonic/gin"
)

// toolsTarget 解析工具类接口的目标目录, 缺省为整理输出目录。
func (a *API) toolsTarget(c *gin.Context) string {
	if folder := c.Query("folder"); folder != "" {
		return folder
	}
	return a.Conf.OutputPath
}

// RunVerify 对目标目录做媒体完整性检查。
func (a *API) RunVerify(c *gin.Context) {
	res, err := tools.VerifyFiles(a.toolsTarget(c))
	if err != nil {
		transport.BadRequest(c, err.Error())
		return
	}
	transport.SendSuccess(c, res)
}

// RunDedup 去除目标目录中的重复文件。dry_run=true 时只统计不删除。
func (a *API) RunDedup(c *gin.Context) {
	dryRun := c.DefaultQuery("dry_run", "true") != "false"
	res, err := tools.RemoveDuplicates(a.toolsTarget(c), dryRun)
	if err != nil {
		transport.BadRequest(c, err.Error())
		return
	}
	transport.SendSuccess(c, res)
}

// RunFixTimestamps 把已整理文件的修改时间改回消息发送时间。
func (a *API) RunFixTimestamps(c *gin.Context) {
	res, err := tools.FixTimestamps(a.toolsTarget(c))
	if err != nil {
		transport.BadRequest(c, err.Error())
		return
	}
	transport.SendSuccess(c, res)
}
