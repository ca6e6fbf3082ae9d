package match

import (
	"math"
	"strings"
	"time"

	"github.com/M0hammedHaris/snaptrace/internal/model"
)

// Scorer 为单个 (文件, 候选) 对计算组合置信度。
// Activity 为各联系人的消息时间列表, 只读。
type Scorer struct {
	// WindowSeconds 是时间衰减窗口, 默认 7200 (2 小时)。
	WindowSeconds float64
	Activity      map[string][]time.Time
}

// 媒体标识存在与否对应两套固定权重。
var (
	weightsWithID    = [4]float64{0.5, 0.3, 0.1, 0.1} // id / time / sameDay / freq
	weightsWithoutID = [3]float64{0.5, 0.2, 0.3}      // time / sameDay / freq
)

// Score 计算候选消息相对给定文件的总分与分项。
// 返回值总分在 [0,1] 内, 且等于分项按当前权重的加权和。
func (s *Scorer) Score(fileMediaID string, fileMtime time.Time, fileDate time.Time, msg *model.LoggedMessage) (float64, model.ScoreBreakdown) {
	window := s.WindowSeconds
	if window <= 0 {
		window = 7200
	}

	var b model.ScoreBreakdown
	b.MediaIDScore = mediaIDScore(fileMediaID, msg.MediaID)

	delta := math.Abs(msg.SentAt.Sub(fileMtime).Seconds())
	b.TimeDiffSeconds = delta
	b.TimeDiffScore = math.Exp(-delta / window)

	if sameUTCDate(msg.SentAt, fileDate) {
		b.SameDayScore = 1.0
	} else {
		b.SameDayScore = 0.5 // 相邻日的候选保留一半权重
	}

	b.ContactFreqScore = s.contactFreqScore(msg.Contact, fileMtime)

	var total float64
	if b.MediaIDScore > 0 {
		w := weightsWithID
		total = w[0]*b.MediaIDScore + w[1]*b.TimeDiffScore + w[2]*b.SameDayScore + w[3]*b.ContactFreqScore
	} else {
		// 没有标识信号时, 把权重重新分配给剩余三项
		w := weightsWithoutID
		total = w[0]*b.TimeDiffScore + w[1]*b.SameDayScore + w[2]*b.ContactFreqScore
	}
	return total, b
}

// mediaIDScore: 完全一致得 1.0; 一方是另一方子串时按字符集重叠率打 0.7 折; 否则 0。
func mediaIDScore(fileID, candID string) float64 {
	if fileID == "" || candID == "" {
		return 0
	}
	if fileID == candID {
		return 1.0
	}
	if strings.Contains(fileID, candID) || strings.Contains(candID, fileID) {
		return 0.7 * charsetOverlap(fileID, candID)
	}
	return 0
}

// charsetOverlap 返回两个标识的字符集交集大小除以较长者的长度。
func charsetOverlap(a, b string) float64 {
	setA := make(map[rune]struct{}, len(a))
	for _, r := range a {
		setA[r] = struct{}{}
	}
	seen := make(map[rune]struct{}, len(b))
	common := 0
	for _, r := range b {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		if _, ok := setA[r]; ok {
			common++
		}
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	return float64(common) / float64(maxLen)
}

// contactFreqScore 统计该联系人在文件修改时间 ±24 小时内的消息数,
// min(count/10, 1)。活跃联系人会提升纯时间匹配的置信度。
func (s *Scorer) contactFreqScore(contact string, fileMtime time.Time) float64 {
	times := s.Activity[contact]
	if len(times) == 0 {
		return 0
	}
	lo := fileMtime.Add(-24 * time.Hour)
	hi := fileMtime.Add(24 * time.Hour)
	count := 0
	for _, t := range times {
		if !t.Before(lo) && !t.After(hi) {
			count++
		}
	}
	score := float64(count) / 10.0
	if score > 1 {
		score = 1
	}
	return score
}

func sameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
