package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/M0hammedHaris/snaptrace/internal/model"
)

func newTestStore(t *testing.T) *DefaultStore {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("创建测试数据库失败: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, startedAt time.Time) *model.RunRecord {
	return &model.RunRecord{
		ID:         id,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(2 * time.Minute),
		Status:     model.RunCompleted,
		ExportPath: "/data/export",
		OutputPath: "/data/organized",
		Stats: model.Statistics{
			Total:         10,
			Organized:     7,
			Unmatched:     3,
			LowConfidence: 1,
			ExactID:       5,
			FuzzyID:       1,
			TimeBased:     1,
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun 失败: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun 失败: %v", err)
	}
	if got.Status != model.RunCompleted {
		t.Errorf("状态 %s, 期望 %s", got.Status, model.RunCompleted)
	}
	if got.Stats != run.Stats {
		t.Errorf("统计不一致: %+v vs %+v", got.Stats, run.Stats)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("开始时间 %v, 期望 %v", got.StartedAt, run.StartedAt)
	}
}

func TestSaveRun_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", time.Now())
	run.Status = model.RunProcessing
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	run.Status = model.RunFailed
	run.Error = "disk full"
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.RunFailed || got.Error != "disk full" {
		t.Errorf("重复保存应覆盖状态与错误: %+v", got)
	}

	runs, err := s.GetRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("同一 ID 不应产生多条记录, 实际 %d", len(runs))
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("期望 sql.ErrNoRows, 实际 %v", err)
	}
}

func TestGetRuns_Order(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := s.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.GetRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("期望 limit 生效返回 2 条, 实际 %d", len(runs))
	}
	if runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Errorf("应按开始时间倒序: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestSaveAndGetDecisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, sampleRun("run-1", time.Now())); err != nil {
		t.Fatal(err)
	}

	decisions := []*model.Decision{
		{
			File: "a.mp4", Contact: "alice", Date: "2024-01-05 10:00:00",
			Matched: true, Tier: model.TierExact, Score: 0.95,
			Breakdown: model.ScoreBreakdown{MediaIDScore: 1, TimeDiffScore: 0.99, TimeDiffSeconds: 60, SameDayScore: 1, ContactFreqScore: 0.3},
			Reason:    "Exact Media ID + Close timestamp (60s) + Same day + Some contact activity",
			Candidates: 4,
		},
		{
			File: "b.mp4", Contact: "bob", Date: "2024-01-05",
			Matched: true, Tier: model.TierTime, Score: 0.55, LowConfidence: true,
			Candidates: 2,
		},
		{
			File: "c.mp4", Contact: "REJECTED", Date: "2024-01-06",
			Score: 0.30, Reason: "REJECTED: best candidate bob scored 0.300 (threshold 0.45), 2 candidates",
		},
	}
	if err := s.SaveDecisions(ctx, "run-1", decisions); err != nil {
		t.Fatalf("SaveDecisions 失败: %v", err)
	}

	all, err := s.GetDecisions(ctx, "run-1", DecisionQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("期望 3 条裁决, 实际 %d", len(all))
	}
	if all[0].File != "a.mp4" || all[0].Tier != model.TierExact || !all[0].Matched {
		t.Errorf("首条裁决字段错误: %+v", all[0])
	}
	if all[0].Breakdown.MediaIDScore != 1 || all[0].Breakdown.TimeDiffSeconds != 60 {
		t.Errorf("分项得分未正确往返: %+v", all[0].Breakdown)
	}
	if !all[1].LowConfidence {
		t.Error("低置信标志丢失")
	}

	matched, err := s.GetDecisions(ctx, "run-1", DecisionQuery{MatchedOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 2 {
		t.Errorf("MatchedOnly 过滤后期望 2 条, 实际 %d", len(matched))
	}

	alice, err := s.GetDecisions(ctx, "run-1", DecisionQuery{Contact: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(alice) != 1 || alice[0].File != "a.mp4" {
		t.Errorf("按联系人过滤失败: %+v", alice)
	}

	page, err := s.GetDecisions(ctx, "run-1", DecisionQuery{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].File != "b.mp4" {
		t.Errorf("分页查询失败: %+v", page)
	}

	other, err := s.GetDecisions(ctx, "run-2", DecisionQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("不存在的运行 ID 应返回空结果, 实际 %d", len(other))
	}
}
