package match

import (
	"fmt"
	"time"

	"github.com/M0hammedHaris/snaptrace/internal/model"
	"github.com/rs/zerolog/log"
)

// Selector 在评分之上应用层级开关与接受阈值, 选出最终裁决。
type Selector struct {
	Scorer    *Scorer
	Threshold float64 // 接受阈值, 按原值生效; 0 表示接受所有候选
	// 旧版三层策略的兼容开关, 作为评分后的过滤器实现。
	EnableTier1 bool // 媒体标识匹配
	EnableTier2 bool // 当日单一联系人
	EnableTier3 bool // 纯时间戳匹配
}

// 低于该分数的命中会被标记为需人工复核。
const lowConfidenceBar = 0.8

// SelectBest 对候选集评分并选出最佳匹配。
// candidates 必须按 TimestampMicros 升序传入, 等分时保留最早的一条。
func (s *Selector) SelectBest(fileMediaID string, fileMtime, fileDate time.Time, candidates []*model.LoggedMessage) *model.MatchResult {
	if len(candidates) == 0 {
		return &model.MatchResult{
			Matched: false,
			Contact: "UNMATCHED",
			Reason:  "No messages within the date window",
		}
	}

	scored := make([]model.MatchCandidate, 0, len(candidates))
	contacts := make(map[string]struct{})
	for _, msg := range candidates {
		total, breakdown := s.Scorer.Score(fileMediaID, fileMtime, fileDate, msg)
		scored = append(scored, model.MatchCandidate{Message: msg, Total: total, Breakdown: breakdown})
		contacts[msg.Contact] = struct{}{}
	}
	multiContact := len(contacts) > 1

	kept := scored[:0:0]
	for _, c := range scored {
		if !s.keep(c, multiContact) {
			continue
		}
		kept = append(kept, c)
	}

	// 阈值过滤
	threshold := s.Threshold
	accepted := kept[:0:0]
	for _, c := range kept {
		if c.Total >= threshold {
			accepted = append(accepted, c)
		}
	}

	if len(accepted) == 0 {
		// 结构化记录被拒绝的最佳候选, 便于诊断
		best := bestOf(kept)
		if best == nil {
			best = bestOf(scored)
		}
		res := &model.MatchResult{
			Matched:    false,
			Contact:    "REJECTED",
			Candidates: len(candidates),
		}
		if best != nil {
			res.Total = best.Total
			res.Breakdown = best.Breakdown
			res.Reason = fmt.Sprintf("REJECTED: best candidate %s scored %.3f (threshold %.2f), %d candidates",
				best.Message.Contact, best.Total, threshold, len(candidates))
			log.Debug().
				Str("contact", best.Message.Contact).
				Float64("score", best.Total).
				Float64("threshold", threshold).
				Int("candidates", len(candidates)).
				Msg("拒绝低分候选")
		} else {
			res.Reason = "REJECTED: all candidates filtered by tier gates"
		}
		return res
	}

	best := bestOf(accepted)

	tier := model.TierTime
	switch {
	case best.Breakdown.MediaIDScore == 1.0:
		tier = model.TierExact
	case best.Breakdown.MediaIDScore > 0:
		tier = model.TierFuzzy
	}

	return &model.MatchResult{
		Matched:       true,
		Message:       best.Message,
		Contact:       best.Message.Contact,
		Total:         best.Total,
		Breakdown:     best.Breakdown,
		Tier:          tier,
		LowConfidence: best.Total < lowConfidenceBar,
		Candidates:    len(candidates),
	}
}

// keep 实现旧版层级开关的过滤语义。
func (s *Selector) keep(c model.MatchCandidate, multiContact bool) bool {
	hasID := c.Breakdown.MediaIDScore > 0
	if hasID {
		return s.EnableTier1
	}
	if !multiContact {
		return s.EnableTier2
	}
	return s.EnableTier3
}

// bestOf 返回总分严格最大的候选; 输入按时间升序, 等分保留最早者。
func bestOf(cands []model.MatchCandidate) *model.MatchCandidate {
	var best *model.MatchCandidate
	for i := range cands {
		if best == nil || cands[i].Total > best.Total {
			best = &cands[i]
		}
	}
	return best
}
