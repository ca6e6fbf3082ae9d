package report

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/M0hammedHaris/snaptrace/internal/model"
	"github.com/rs/zerolog/log"
)

// 可读原因串使用的固定子阈值。
const (
	closeTimeSeconds  = 300
	moderateTimeScore = 0.5
	highActivityScore = 0.5
)

// Writer 累积一次运行中每个文件的裁决, 结束时输出审计报告。
// Add 可以被并发调用, 其余方法应在运行结束后串行使用。
type Writer struct {
	mu      sync.Mutex
	records []*model.Decision
}

// NewWriter 创建空的报告累加器。
func NewWriter() *Writer {
	return &Writer{}
}

// Add 追加一条裁决记录。
func (w *Writer) Add(d *model.Decision) {
	w.mu.Lock()
	w.records = append(w.records, d)
	w.mu.Unlock()
}

// Records 返回累积的全部记录 (追加顺序)。
func (w *Writer) Records() []*model.Decision {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*model.Decision, len(w.records))
	copy(out, w.records)
	return out
}

// Band 返回记录所属的置信度分组。
func Band(d *model.Decision) string {
	switch {
	case d.Matched && d.LowConfidence:
		return "low_confidence"
	case d.Matched:
		return "matched"
	default:
		return "rejected"
	}
}

// WriteText 将报告写入 path。顺序: 低置信命中在前, 其后为成功命中,
// 最后是被拒绝/未命中的文件。
func (w *Writer) WriteText(path string, opts model.OrganizeOptions) error {
	records := w.Records()

	var sb strings.Builder
	sb.WriteString("MEDIA FILE MATCHING REPORT\n")
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Timestamp window: %.0fs\n", opts.TimestampThresholdSeconds))
	sb.WriteString(fmt.Sprintf("  Score threshold: %.2f\n", opts.MatchScoreThreshold))
	sb.WriteString(fmt.Sprintf("  Tier 1 (Media ID): %s\n", enabled(opts.EnableTier1)))
	sb.WriteString(fmt.Sprintf("  Tier 2 (Single Contact): %s\n", enabled(opts.EnableTier2)))
	sb.WriteString(fmt.Sprintf("  Tier 3 (Timestamp): %s\n", enabled(opts.EnableTier3)))
	sb.WriteString("\n" + strings.Repeat("=", 80) + "\n\n")

	for _, band := range []string{"low_confidence", "matched", "rejected"} {
		wrote := false
		for _, d := range records {
			if Band(d) != band {
				continue
			}
			if !wrote {
				sb.WriteString(bandTitle(band) + "\n")
				sb.WriteString(strings.Repeat("-", 80) + "\n")
				wrote = true
			}
			writeRecord(&sb, d)
		}
		if wrote {
			sb.WriteString("\n")
		}
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("写入匹配报告失败: %w", err)
	}
	log.Info().Str("path", path).Int("records", len(records)).Msg("匹配报告已写入")
	return nil
}

func writeRecord(sb *strings.Builder, d *model.Decision) {
	fmt.Fprintf(sb, "File: %s\n", d.File)
	fmt.Fprintf(sb, "  Contact: %s\n", d.Contact)
	fmt.Fprintf(sb, "  Date: %s\n", d.Date)
	fmt.Fprintf(sb, "  Score: %.3f", d.Score)
	if d.Matched {
		fmt.Fprintf(sb, " (%s", d.Tier)
		if d.LowConfidence {
			sb.WriteString(", low confidence")
		}
		sb.WriteString(")")
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Breakdown: id=%.2f time=%.2f (%.0fs) day=%.2f freq=%.2f\n",
		d.Breakdown.MediaIDScore, d.Breakdown.TimeDiffScore, d.Breakdown.TimeDiffSeconds,
		d.Breakdown.SameDayScore, d.Breakdown.ContactFreqScore)
	fmt.Fprintf(sb, "  Reason: %s\n", d.Reason)
	fmt.Fprintf(sb, "  Candidates: %d\n", d.Candidates)
	sb.WriteString(strings.Repeat("-", 80) + "\n")
}

func bandTitle(band string) string {
	switch band {
	case "low_confidence":
		return "LOW CONFIDENCE MATCHES (manual review recommended)"
	case "matched":
		return "MATCHED FILES"
	default:
		return "REJECTED / UNMATCHED FILES"
	}
}

func enabled(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}

// FormatReason 把评分分项组合成一句可读的原因,
// 例如 "Exact Media ID + Close timestamp (45s) + Same day + High contact activity"。
func FormatReason(b model.ScoreBreakdown) string {
	var parts []string

	switch {
	case b.MediaIDScore == 1.0:
		parts = append(parts, "Exact Media ID")
	case b.MediaIDScore > 0:
		parts = append(parts, "Partial Media ID")
	}

	switch {
	case b.TimeDiffSeconds < closeTimeSeconds:
		parts = append(parts, fmt.Sprintf("Close timestamp (%.0fs)", b.TimeDiffSeconds))
	case b.TimeDiffScore > moderateTimeScore:
		parts = append(parts, fmt.Sprintf("Moderate timestamp (%.0fs)", b.TimeDiffSeconds))
	default:
		parts = append(parts, fmt.Sprintf("Distant timestamp (%.0fs)", b.TimeDiffSeconds))
	}

	if b.SameDayScore == 1.0 {
		parts = append(parts, "Same day")
	} else {
		parts = append(parts, "Adjacent day")
	}

	if b.ContactFreqScore > highActivityScore {
		parts = append(parts, "High contact activity")
	} else if b.ContactFreqScore > 0 {
		parts = append(parts, "Some contact activity")
	}

	return strings.Join(parts, " + ")
}
