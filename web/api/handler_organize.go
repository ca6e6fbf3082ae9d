package api

import (
	"context"
	"errors"
	"time"

	"github.com/M0hammedHaris/snaptrace/chatlog"
	"github.com/M0hammedHaris/snaptrace/internal/model"
	"github.com/M0hammedHaris/snaptrace/organize"
	"github.com/M0hammedHaris/snaptrace/web/transport"
	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// StartOrganize 启动一次整理运行。请求体可携带 options 字段,
// 对默认配置做逐项覆盖。
func (a *API) StartOrganize(c *gin.Context) {
	if a.Tasks.Running() {
		transport.Conflict(c, "已有整理任务正在运行中")
		return
	}

	var req struct {
		Options map[string]interface{} `json:"options"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		transport.BadRequest(c, "参数错误")
		return
	}

	opts := a.defaultOptions()
	if len(req.Options) > 0 {
		if err := mapstructure.WeakDecode(req.Options, &opts); err != nil {
			transport.BadRequest(c, "无法解析 options: "+err.Error())
			return
		}
	}
	if opts.ExportPath == "" || opts.OutputPath == "" {
		transport.BadRequest(c, "export_path 与 output_path 不能为空")
		return
	}

	idx, err := a.Loader.Get()
	if err != nil {
		switch {
		case errors.Is(err, chatlog.ErrMissingLog):
			transport.NotFound(c, "聊天记录文件不存在: "+err.Error())
		case errors.Is(err, chatlog.ErrMalformedLog):
			transport.BadRequest(c, "聊天记录无法解析: "+err.Error())
		default:
			transport.InternalServerError(c, err.Error())
		}
		return
	}

	startedAt := time.Now()
	runner := organize.NewRunner(opts, idx, nil)
	task := a.Tasks.Launch(runner, func(t *organize.Task, sum *organize.Summary) {
		a.archiveRun(t, sum, opts, startedAt)
	})

	log.Info().Str("task_id", task.ID).Str("export", opts.ExportPath).Msg("整理任务已启动")
	transport.SendSuccess(c, task)
}

// GetOrganizeStatus 轮询任务进度。
func (a *API) GetOrganizeStatus(c *gin.Context) {
	task := a.Tasks.Get(c.Param("id"))
	if task == nil {
		transport.NotFound(c, "任务不存在")
		return
	}
	transport.SendSuccess(c, task)
}

// CancelOrganize 协作式取消任务, 文件级操作不会被打断。
func (a *API) CancelOrganize(c *gin.Context) {
	if !a.Tasks.Cancel(c.Param("id")) {
		transport.NotFound(c, "任务不存在")
		return
	}
	transport.SendSuccess(c, gin.H{"status": "cancelling"})
}

// defaultOptions 从配置文件取默认值。
func (a *API) defaultOptions() model.OrganizeOptions {
	opts := model.DefaultOptions()
	opts.ExportPath = a.Conf.ExportPath
	opts.OutputPath = a.Conf.OutputPath
	if v := viper.GetFloat64("TIMESTAMP_THRESHOLD_SECONDS"); v > 0 {
		opts.TimestampThresholdSeconds = v
	}
	// 阈值 0 是合法配置 (接受所有候选), 只有未设置才用默认值
	if viper.IsSet("MATCH_SCORE_THRESHOLD") {
		opts.MatchScoreThreshold = viper.GetFloat64("MATCH_SCORE_THRESHOLD")
	}
	if viper.IsSet("ENABLE_TIER1") {
		opts.EnableTier1 = viper.GetBool("ENABLE_TIER1")
	}
	if viper.IsSet("ENABLE_TIER2") {
		opts.EnableTier2 = viper.GetBool("ENABLE_TIER2")
	}
	if viper.IsSet("ENABLE_TIER3") {
		opts.EnableTier3 = viper.GetBool("ENABLE_TIER3")
	}
	if viper.IsSet("ORGANIZE_BY_YEAR") {
		opts.OrganizeByYear = viper.GetBool("ORGANIZE_BY_YEAR")
	}
	if viper.IsSet("CREATE_DEBUG_REPORT") {
		opts.CreateDebugReport = viper.GetBool("CREATE_DEBUG_REPORT")
	}
	if viper.IsSet("PRESERVE_ORIGINALS") {
		opts.PreserveOriginals = viper.GetBool("PRESERVE_ORIGINALS")
	}
	return opts
}

// archiveRun 在任务结束后把摘要与逐文件裁决写入运行历史。
func (a *API) archiveRun(t *organize.Task, sum *organize.Summary, opts model.OrganizeOptions, startedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	run := &model.RunRecord{
		ID:         t.ID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Status:     t.Status,
		ExportPath: opts.ExportPath,
		OutputPath: opts.OutputPath,
		Error:      t.Error,
	}
	if sum != nil {
		run.Stats = sum.Stats
	}
	if err := a.Store.SaveRun(ctx, run); err != nil {
		log.Error().Err(err).Str("run_id", t.ID).Msg("归档运行摘要失败")
		return
	}
	if sum != nil && len(sum.Decisions) > 0 {
		if err := a.Store.SaveDecisions(ctx, t.ID, sum.Decisions); err != nil {
			log.Error().Err(err).Str("run_id", t.ID).Msg("归档裁决记录失败")
		}
	}
}
