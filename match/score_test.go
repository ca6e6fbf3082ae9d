package match

import (
	"math"
	"testing"
	"time"

	"github.com/M0hammedHaris/snaptrace/internal/model"
)

func utc(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func msg(contact, mediaID string, sentAt time.Time) *model.LoggedMessage {
	return &model.LoggedMessage{
		TimestampMicros: sentAt.UnixMicro(),
		Contact:         contact,
		SentAt:          sentAt,
		MediaID:         mediaID,
	}
}

func TestScore_ExactMediaID(t *testing.T) {
	s := &Scorer{WindowSeconds: 7200, Activity: map[string][]time.Time{
		"testuser": {
			utc(2023, 1, 15, 11, 0, 0),
			utc(2023, 1, 15, 12, 0, 0),
			utc(2023, 1, 15, 13, 0, 0),
		},
	}}

	mtime := utc(2023, 1, 15, 12, 0, 0)
	fileDate := utc(2023, 1, 15, 0, 0, 0)
	cand := msg("testuser", "abc123xyz", utc(2023, 1, 15, 12, 1, 0))

	total, b := s.Score("abc123xyz", mtime, fileDate, cand)

	if b.MediaIDScore != 1.0 {
		t.Errorf("期望 MediaIDScore 1.0, 实际得到 %f", b.MediaIDScore)
	}
	if b.SameDayScore != 1.0 {
		t.Errorf("期望 SameDayScore 1.0, 实际得到 %f", b.SameDayScore)
	}
	if b.TimeDiffSeconds != 60 {
		t.Errorf("期望时间差 60s, 实际得到 %f", b.TimeDiffSeconds)
	}
	if b.ContactFreqScore != 0.3 {
		t.Errorf("期望 ContactFreqScore 0.3 (3 条消息), 实际得到 %f", b.ContactFreqScore)
	}

	// 总分必须等于固定权重下的加权和
	want := 0.5*b.MediaIDScore + 0.3*b.TimeDiffScore + 0.1*b.SameDayScore + 0.1*b.ContactFreqScore
	if math.Abs(total-want) > 1e-9 {
		t.Errorf("总分 %f 与加权和 %f 不一致", total, want)
	}
	if total < 0 || total > 1 {
		t.Errorf("总分超出 [0,1]: %f", total)
	}
}

func TestScore_DynamicWeightsWithoutID(t *testing.T) {
	s := &Scorer{WindowSeconds: 7200, Activity: map[string][]time.Time{}}

	mtime := utc(2023, 1, 15, 12, 0, 0)
	fileDate := utc(2023, 1, 15, 0, 0, 0)
	cand := msg("testuser", "", utc(2023, 1, 15, 12, 5, 0))

	total, b := s.Score("", mtime, fileDate, cand)

	if b.MediaIDScore != 0 {
		t.Fatalf("期望 MediaIDScore 0, 实际得到 %f", b.MediaIDScore)
	}
	// 无标识信号时权重重新分配
	want := 0.5*b.TimeDiffScore + 0.2*b.SameDayScore + 0.3*b.ContactFreqScore
	if math.Abs(total-want) > 1e-9 {
		t.Errorf("总分 %f 与动态权重加权和 %f 不一致", total, want)
	}
}

// 单一候选无标识, 时间差 5000s, 同日, 无联系人活动: 总分应低于 0.45 阈值。
func TestScore_BelowThresholdScenario(t *testing.T) {
	s := &Scorer{WindowSeconds: 7200, Activity: map[string][]time.Time{}}

	mtime := utc(2024, 3, 10, 12, 0, 0)
	fileDate := utc(2024, 3, 10, 0, 0, 0)
	cand := msg("bob", "", mtime.Add(5000*time.Second))

	total, b := s.Score("", mtime, fileDate, cand)

	wantTime := math.Exp(-5000.0 / 7200.0)
	if math.Abs(b.TimeDiffScore-wantTime) > 1e-9 {
		t.Errorf("期望 TimeDiffScore %f, 实际得到 %f", wantTime, b.TimeDiffScore)
	}
	if total >= 0.45 {
		t.Errorf("期望总分低于阈值 0.45, 实际得到 %f", total)
	}
}

func TestScore_FuzzyCharsetOverlap(t *testing.T) {
	s := &Scorer{WindowSeconds: 7200, Activity: map[string][]time.Time{}}

	mtime := utc(2023, 1, 15, 12, 0, 0)
	fileDate := utc(2023, 1, 15, 0, 0, 0)
	cand := msg("testuser", "abc123xyz", utc(2023, 1, 15, 12, 1, 0))

	// "abc123" 是 "abc123xyz" 的子串: 字符集交集 {a,b,c,1,2,3} 共 6, 较长串长度 9
	_, b := s.Score("abc123", mtime, fileDate, cand)
	want := 0.7 * 6.0 / 9.0
	if math.Abs(b.MediaIDScore-want) > 1e-9 {
		t.Errorf("期望模糊分 %f, 实际得到 %f", want, b.MediaIDScore)
	}

	// 两个标识彼此都不是子串时不给模糊分
	_, b2 := s.Score("zzzzzz", mtime, fileDate, cand)
	if b2.MediaIDScore != 0 {
		t.Errorf("非子串关系不应有标识分, 实际得到 %f", b2.MediaIDScore)
	}
}

func TestScore_AdjacentDayHalfCredit(t *testing.T) {
	s := &Scorer{WindowSeconds: 7200, Activity: map[string][]time.Time{}}

	fileDate := utc(2023, 1, 15, 0, 0, 0)
	mtime := utc(2023, 1, 15, 0, 30, 0)
	cand := msg("testuser", "", utc(2023, 1, 14, 23, 30, 0))

	_, b := s.Score("", mtime, fileDate, cand)
	if b.SameDayScore != 0.5 {
		t.Errorf("相邻日候选应得 0.5, 实际得到 %f", b.SameDayScore)
	}
}

func TestScore_ContactFreqCap(t *testing.T) {
	times := make([]time.Time, 0, 25)
	base := utc(2023, 1, 15, 12, 0, 0)
	for i := 0; i < 25; i++ {
		times = append(times, base.Add(time.Duration(i)*time.Minute))
	}
	s := &Scorer{WindowSeconds: 7200, Activity: map[string][]time.Time{"busy": times}}

	cand := msg("busy", "", base)
	_, b := s.Score("", base, utc(2023, 1, 15, 0, 0, 0), cand)
	if b.ContactFreqScore != 1.0 {
		t.Errorf("活跃度得分应封顶为 1.0, 实际得到 %f", b.ContactFreqScore)
	}
}
