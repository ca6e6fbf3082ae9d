package organize

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/M0hammedHaris/snaptrace/chatlog"
	"github.com/M0hammedHaris/snaptrace/internal/model"
)

func TestManagerLaunch_Completes(t *testing.T) {
	exportPath := buildExport(t, runnerChatJSON, map[string]time.Time{
		"2024-01-05_b~XYZ123ABC.mp4": time.Date(2024, 1, 5, 10, 1, 0, 0, time.UTC),
	})
	idx, err := chatlog.LoadFromExport(exportPath)
	if err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	m.tasks["stale"] = &Task{ID: "stale", Status: model.RunCompleted, CreatedAt: time.Now().Add(-2 * time.Hour)}

	done := make(chan *Summary, 1)
	r := NewRunner(runnerOptions(exportPath, filepath.Join(t.TempDir(), "out")), idx, nil)
	task := m.Launch(r, func(task *Task, sum *Summary) {
		done <- sum
	})

	if task.ID == "" {
		t.Fatal("任务应获得唯一 ID")
	}
	if task.Status != model.RunProcessing {
		t.Errorf("启动后状态应为 processing, 实际 %s", task.Status)
	}
	if task.runner != nil {
		t.Error("Launch 返回的应是与后台任务脱钩的快照")
	}
	if m.Get("stale") != nil {
		t.Error("Launch 应顺带清理过期任务")
	}

	select {
	case sum := <-done:
		if sum == nil || sum.Stats.Organized != 1 {
			t.Errorf("回调的摘要错误: %+v", sum)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("任务未在预期时间内完成")
	}

	got := m.Get(task.ID)
	if got == nil {
		t.Fatal("已完成的任务仍应可查询")
	}
	if got.Status != model.RunCompleted || got.Progress != 100 {
		t.Errorf("完成状态错误: %+v", got)
	}
	// Launch 返回的快照不随后台任务演进
	if task.Status != model.RunProcessing {
		t.Errorf("快照不应被后台任务修改: %s", task.Status)
	}
	if m.Running() {
		t.Error("没有进行中的任务时 Running 应为 false")
	}
}

func TestManagerLaunch_FailurePropagates(t *testing.T) {
	// 导出目录下没有 chat_media, Run 以 ErrNoMediaDirs 失败
	exportPath := t.TempDir()
	idx := &chatlog.Index{
		Messages: map[int64]*model.LoggedMessage{},
		Activity: map[string][]time.Time{},
	}

	m := NewManager()
	done := make(chan *Task, 1)
	r := NewRunner(runnerOptions(exportPath, filepath.Join(exportPath, "out")), idx, nil)
	m.Launch(r, func(task *Task, sum *Summary) {
		done <- task
	})

	select {
	case task := <-done:
		got := m.Get(task.ID)
		if got.Status != model.RunFailed || got.Error == "" {
			t.Errorf("失败状态未记录: %+v", got)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("任务未在预期时间内结束")
	}
}

func TestManagerGet_Unknown(t *testing.T) {
	m := NewManager()
	if m.Get("no-such-task") != nil {
		t.Error("未知任务应返回 nil")
	}
	if m.Cancel("no-such-task") {
		t.Error("未知任务不可取消")
	}
}

func TestManagerCleanExpired(t *testing.T) {
	m := NewManager()
	m.tasks["old"] = &Task{ID: "old", Status: model.RunCompleted, CreatedAt: time.Now().Add(-2 * time.Hour)}
	m.tasks["fresh"] = &Task{ID: "fresh", Status: model.RunCompleted, CreatedAt: time.Now()}
	m.tasks["active"] = &Task{ID: "active", Status: model.RunProcessing, CreatedAt: time.Now().Add(-3 * time.Hour)}

	m.CleanExpired()

	if m.Get("old") != nil {
		t.Error("过期的已完成任务应被清理")
	}
	if m.Get("fresh") == nil {
		t.Error("新近任务不应被清理")
	}
	if m.Get("active") == nil {
		t.Error("进行中的任务永不清理")
	}
}
