package model

import "time"

// RunStatus 整理任务状态
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunCancelled  RunStatus = "cancelled"
	RunFailed     RunStatus = "failed"
)

// RunRecord 表示一次整理运行的归档摘要。
type RunRecord struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Status     RunStatus  `json:"status"`
	ExportPath string     `json:"export_path"`
	OutputPath string     `json:"output_path"`
	Stats      Statistics `json:"stats"`
	Error      string     `json:"error,omitempty"`
}

// Decision 记录单个文件的匹配裁决, 同时用于审计报告与运行历史。
type Decision struct {
	RunID         string         `json:"run_id,omitempty"`
	File          string         `json:"file"`
	Contact       string         `json:"contact"` // 未命中时为 UNMATCHED / REJECTED
	Date          string         `json:"date"`    // 已格式化的消息时间或文件日期
	Matched       bool           `json:"matched"`
	Tier          MatchTier      `json:"tier,omitempty"`
	Score         float64        `json:"score"`
	LowConfidence bool           `json:"low_confidence"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
	Reason        string         `json:"reason"`
	Candidates    int            `json:"candidates"`
}
