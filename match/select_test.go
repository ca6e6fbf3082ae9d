package match

import (
	"strings"
	"testing"
	"time"

	"github.com/M0hammedHaris/snaptrace/internal/model"
)

func newSelector(activity map[string][]time.Time) *Selector {
	return &Selector{
		Scorer:      &Scorer{WindowSeconds: 7200, Activity: activity},
		Threshold:   0.45,
		EnableTier1: true,
		EnableTier2: true,
		EnableTier3: true,
	}
}

func TestSelectBest_ExactIDWins(t *testing.T) {
	sel := newSelector(map[string][]time.Time{})

	mtime := utc(2024, 1, 5, 10, 0, 30)
	fileDate := utc(2024, 1, 5, 0, 0, 0)
	exact := msg("alice", "xyz123abc0", utc(2024, 1, 5, 10, 0, 0))
	other := msg("bob", "", utc(2024, 1, 5, 10, 0, 35))

	res := sel.SelectBest("xyz123abc0", mtime, fileDate, []*model.LoggedMessage{exact, other})

	if !res.Matched {
		t.Fatalf("期望命中, 实际原因: %s", res.Reason)
	}
	if res.Contact != "alice" {
		t.Errorf("期望匹配 alice, 实际得到 %s", res.Contact)
	}
	if res.Tier != model.TierExact {
		t.Errorf("期望 exact 层级, 实际得到 %s", res.Tier)
	}
	if res.Breakdown.MediaIDScore != 1.0 {
		t.Errorf("期望 MediaIDScore 1.0, 实际得到 %f", res.Breakdown.MediaIDScore)
	}
}

// 构造极端情况: 完美时间 + 高活跃度的无标识候选, 在动态权重下
// 可以拿到接近 1.0 的总分, 从而压过一个模糊标识候选。
// 这是评分模型的已知特性, 用例固定其实际裁决。
func TestSelectBest_PerfectTimeCanBeatFuzzyID(t *testing.T) {
	activity := make(map[string][]time.Time)
	base := utc(2024, 1, 5, 10, 0, 0)
	for i := 0; i < 12; i++ {
		activity["speedy"] = append(activity["speedy"], base.Add(time.Duration(i)*time.Minute))
	}
	sel := newSelector(activity)

	// speedy: 无标识, 时间差 0s, 同日, 活跃度满分 -> 0.5+0.2+0.3 = 1.0
	speedy := msg("speedy", "", base)
	// fuzzy: 模糊标识 (子串), 时间差 4 小时
	fuzzy := msg("fuzzy", "abc123xyzdef", base.Add(4*time.Hour))

	res := sel.SelectBest("abc123", base, utc(2024, 1, 5, 0, 0, 0),
		[]*model.LoggedMessage{speedy, fuzzy})

	if !res.Matched {
		t.Fatalf("期望命中, 实际原因: %s", res.Reason)
	}
	if res.Contact != "speedy" {
		t.Errorf("完美时间候选应胜出, 实际得到 %s (score=%f)", res.Contact, res.Total)
	}
	if res.Tier != model.TierTime {
		t.Errorf("期望 time-based 层级, 实际得到 %s", res.Tier)
	}
}

func TestSelectBest_ThresholdRejection(t *testing.T) {
	sel := newSelector(map[string][]time.Time{})

	mtime := utc(2024, 3, 10, 12, 0, 0)
	fileDate := utc(2024, 3, 10, 0, 0, 0)
	cand := msg("bob", "", mtime.Add(5000*time.Second))

	res := sel.SelectBest("", mtime, fileDate, []*model.LoggedMessage{cand})

	if res.Matched {
		t.Fatalf("总分低于阈值时不应命中, score=%f", res.Total)
	}
	if res.Contact != "REJECTED" {
		t.Errorf("期望 REJECTED 标记, 实际得到 %s", res.Contact)
	}
	// 被拒绝时仍要保留最佳候选的分数拆解用于诊断
	if res.Total == 0 || res.Breakdown.TimeDiffScore == 0 {
		t.Errorf("拒绝记录应携带最佳候选的分数拆解: %+v", res.Breakdown)
	}
	if !strings.Contains(res.Reason, "REJECTED") {
		t.Errorf("拒绝原因应包含 REJECTED: %s", res.Reason)
	}
}

func TestSelectBest_EmptyCandidates(t *testing.T) {
	sel := newSelector(map[string][]time.Time{})
	res := sel.SelectBest("", utc(2024, 1, 1, 0, 0, 0), utc(2024, 1, 1, 0, 0, 0), nil)
	if res.Matched {
		t.Fatal("空候选集不应命中")
	}
	if res.Contact != "UNMATCHED" {
		t.Errorf("期望 UNMATCHED, 实际得到 %s", res.Contact)
	}
}

func TestSelectBest_TierGates(t *testing.T) {
	mtime := utc(2024, 1, 5, 10, 0, 0)
	fileDate := utc(2024, 1, 5, 0, 0, 0)

	t.Run("tier1 禁用丢弃标识候选", func(t *testing.T) {
		sel := newSelector(map[string][]time.Time{})
		sel.EnableTier1 = false
		withID := msg("alice", "xyz123abc0", mtime)
		res := sel.SelectBest("xyz123abc0", mtime, fileDate, []*model.LoggedMessage{withID})
		if res.Matched {
			t.Errorf("tier1 禁用后标识候选不应命中, 实际匹配 %s", res.Contact)
		}
	})

	t.Run("tier2 禁用丢弃单联系人无标识候选", func(t *testing.T) {
		sel := newSelector(map[string][]time.Time{})
		sel.EnableTier2 = false
		only := msg("alice", "", mtime)
		res := sel.SelectBest("", mtime, fileDate, []*model.LoggedMessage{only})
		if res.Matched {
			t.Errorf("tier2 禁用后单联系人候选不应命中, 实际匹配 %s", res.Contact)
		}
	})

	t.Run("tier3 禁用丢弃多联系人无标识候选", func(t *testing.T) {
		sel := newSelector(map[string][]time.Time{})
		sel.EnableTier3 = false
		a := msg("alice", "", mtime)
		b := msg("bob", "", mtime.Add(time.Minute))
		res := sel.SelectBest("", mtime, fileDate, []*model.LoggedMessage{a, b})
		if res.Matched {
			t.Errorf("tier3 禁用后多联系人候选不应命中, 实际匹配 %s", res.Contact)
		}
	})
}

// 总分完全相同的两个候选: 保留时间戳更早的那一个。
func TestSelectBest_TieBreakEarliestTimestamp(t *testing.T) {
	sel := newSelector(map[string][]time.Time{})

	mtime := utc(2024, 1, 5, 10, 0, 0)
	fileDate := utc(2024, 1, 5, 0, 0, 0)
	// 时间差对称, 其余分项一致 -> 总分相同
	early := msg("early", "", mtime.Add(-10*time.Minute))
	late := msg("late", "", mtime.Add(10*time.Minute))

	res := sel.SelectBest("", mtime, fileDate, []*model.LoggedMessage{early, late})
	if !res.Matched {
		t.Fatalf("期望命中, 实际原因: %s", res.Reason)
	}
	if res.Contact != "early" {
		t.Errorf("等分时应保留最早候选, 实际得到 %s", res.Contact)
	}
}

func TestSelectBest_ZeroThresholdAcceptsAll(t *testing.T) {
	sel := newSelector(map[string][]time.Time{})
	sel.Threshold = 0 // 显式配置 0 表示接受所有候选, 不回退默认阈值

	mtime := utc(2024, 1, 5, 10, 0, 0)
	fileDate := utc(2024, 1, 5, 0, 0, 0)
	// 时间差 5000s, 总分约 0.45 以下, 默认阈值会拒绝
	far := msg("alice", "", utc(2024, 1, 5, 8, 36, 40))

	res := sel.SelectBest("", mtime, fileDate, []*model.LoggedMessage{far})
	if !res.Matched {
		t.Fatalf("阈值为 0 时任何候选都应命中: %+v", res)
	}
	if res.Contact != "alice" {
		t.Errorf("期望命中 alice, 实际 %s", res.Contact)
	}
}

func TestSelectBest_LowConfidenceFlag(t *testing.T) {
	sel := newSelector(map[string][]time.Time{})

	mtime := utc(2024, 1, 5, 10, 0, 0)
	fileDate := utc(2024, 1, 5, 0, 0, 0)
	// 无标识, 时间差 30 分钟: exp(-1800/7200)=0.779 -> 总分 0.5*0.779+0.2 = 0.589
	cand := msg("alice", "", mtime.Add(30*time.Minute))

	res := sel.SelectBest("", mtime, fileDate, []*model.LoggedMessage{cand})
	if !res.Matched {
		t.Fatalf("期望命中, 实际原因: %s", res.Reason)
	}
	if !res.LowConfidence {
		t.Errorf("总分 %f 低于 0.8 应标记低置信", res.Total)
	}
	if res.Tier != model.TierTime {
		t.Errorf("期望 time-based 层级, 实际得到 %s", res.Tier)
	}
}
