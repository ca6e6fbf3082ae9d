package api

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/M0hammedHaris/snaptrace/store"
	"github.com/M0hammedHaris/snaptrace/web/transport"
	"github.com/gin-gonic/gin"
)

// GetRuns 返回最近的整理运行历史。
func (a *API) GetRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := a.Store.GetRuns(c.Request.Context(), limit)
	if err != nil {
		transport.InternalServerError(c, err.Error())
		return
	}
	transport.SendSuccess(c, runs)
}

// GetRunByID 返回单次运行的摘要。
func (a *API) GetRunByID(c *gin.Context) {
	run, err := a.Store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			transport.NotFound(c, "运行记录不存在")
			return
		}
		transport.InternalServerError(c, err.Error())
		return
	}
	transport.SendSuccess(c, run)
}

// GetRunDecisions 返回单次运行的逐文件裁决, 可按联系人过滤。
func (a *API) GetRunDecisions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	query := store.DecisionQuery{
		Contact:     c.Query("contact"),
		MatchedOnly: c.Query("matched") == "true",
		Limit:       limit,
		Offset:      offset,
	}
	decisions, err := a.Store.GetDecisions(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		transport.InternalServerError(c, err.Error())
		return
	}
	transport.SendSuccess(c, decisions)
}
