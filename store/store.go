package store

import (
	"context"

	"github.com/M0hammedHaris/snaptrace/internal/model"
)

// Store 定义了运行历史的统一访问接口。
// 每次整理运行的摘要与逐文件裁决都会归档, 供历史查询与复核。
type Store interface {
	// 运行归档
	SaveRun(ctx context.Context, run *model.RunRecord) error
	SaveDecisions(ctx context.Context, runID string, decisions []*model.Decision) error

	// 历史查询
	GetRuns(ctx context.Context, limit int) ([]*model.RunRecord, error)
	GetRun(ctx context.Context, runID string) (*model.RunRecord, error)
	GetDecisions(ctx context.Context, runID string, query DecisionQuery) ([]*model.Decision, error)

	// 生命周期管理
	Close() error
}

// DecisionQuery 过滤单次运行的裁决记录。
type DecisionQuery struct {
	Contact     string // 为空表示不过滤
	MatchedOnly bool
	Limit       int
	Offset      int
}
