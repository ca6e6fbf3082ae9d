package organize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync/atomic"
	"time"

	"github.com/M0hammedHaris/snaptrace/chatlog"
	"github.com/M0hammedHaris/snaptrace/internal/model"
	"github.com/M0hammedHaris/snaptrace/match"
	"github.com/M0hammedHaris/snaptrace/report"
	"github.com/rs/zerolog/log"
)

// ErrNoMediaDirs 导出目录下没有任何 chat_media* 目录
var ErrNoMediaDirs = errors.New("no chat_media directories found")

// 媒体文件名预期以 ISO 日期开头。没有日期前缀的文件直接判为未匹配。
var datePrefixRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)

// ProgressFunc 接收粗粒度的进度回调 (已处理数, 总数, 阶段描述)。
type ProgressFunc func(current, total int, stage string)

// Summary 是一次运行的完整结果。
type Summary struct {
	Stats      model.Statistics
	Decisions  []*model.Decision
	ReportPath string
	Cancelled  bool
}

// Runner 驱动一次完整的整理运行。每个文件的裁决只依赖
// (文件, 索引, 配置), 共享可变状态仅有统计与报告累加器。
type Runner struct {
	opts      model.OrganizeOptions
	idx       *chatlog.Index
	selector  *match.Selector
	committer *Committer
	writer    *report.Writer
	stats     model.Statistics
	cancelled atomic.Bool
	progress  ProgressFunc
}

// NewRunner 组装一次运行所需的全部组件。
func NewRunner(opts model.OrganizeOptions, idx *chatlog.Index, progress ProgressFunc) *Runner {
	scorer := &match.Scorer{
		WindowSeconds: opts.TimestampThresholdSeconds,
		Activity:      idx.Activity,
	}
	return &Runner{
		opts: opts,
		idx:  idx,
		selector: &match.Selector{
			Scorer:      scorer,
			Threshold:   opts.MatchScoreThreshold,
			EnableTier1: opts.EnableTier1,
			EnableTier2: opts.EnableTier2,
			EnableTier3: opts.EnableTier3,
		},
		committer: &Committer{
			OutputRoot:        opts.OutputPath,
			OrganizeByYear:    opts.OrganizeByYear,
			PreserveOriginals: opts.PreserveOriginals,
		},
		writer:   report.NewWriter(),
		progress: progress,
	}
}

// Cancel 请求协作式取消。正在处理的文件会完整结束, 之后的文件不再处理。
func (r *Runner) Cancel() {
	r.cancelled.Store(true)
	log.Info().Msg("收到取消请求")
}

// Stats 返回当前统计快照。
func (r *Runner) Stats() model.Statistics {
	return r.stats
}

// Run 执行整理流程并返回汇总。致命的准备错误 (缺少聊天记录已在
// 索引加载时暴露, 这里是媒体目录缺失) 返回 error; 单文件错误只计入结果。
func (r *Runner) Run() (*Summary, error) {
	mediaDirs, err := detectMediaDirs(r.opts.ExportPath)
	if err != nil {
		return nil, err
	}
	log.Info().Int("dirs", len(mediaDirs)).Msg("发现媒体目录")

	files := collectFiles(mediaDirs)
	r.stats.Total = len(files)
	log.Info().Int("files", len(files)).Msg("待处理媒体文件")

	var unmatched []string
	for i, f := range files {
		if r.cancelled.Load() {
			log.Info().Int("processed", i).Msg("运行已取消")
			return r.summary(true, ""), nil
		}
		if r.progress != nil && (i%10 == 0 || i == len(files)-1) {
			r.progress(i+1, len(files), fmt.Sprintf("Processing %d/%d: %s", i+1, len(files), truncate(filepath.Base(f), 40)))
		}
		if !r.processFile(f) {
			unmatched = append(unmatched, f)
		}
	}

	if len(unmatched) > 0 {
		if r.progress != nil {
			r.progress(len(files), len(files), fmt.Sprintf("Relocating %d unmatched files", len(unmatched)))
		}
		r.relocateUnmatched(unmatched)
	}

	reportPath := ""
	if r.opts.CreateDebugReport {
		reportPath = filepath.Join(r.opts.OutputPath, "matching_report.txt")
		if err := r.writer.WriteText(reportPath, r.opts); err != nil {
			// 报告失败不影响已完成的归档
			log.Error().Err(err).Msg("写入报告失败")
			reportPath = ""
		}
	}

	log.Info().
		Int("organized", r.stats.Organized).
		Int("unmatched", r.stats.Unmatched).
		Int("total", r.stats.Total).
		Msg("整理完成")
	return r.summary(false, reportPath), nil
}

// processFile 对单个文件做出裁决并归档, 返回是否命中。
// 任何文件级错误都被转化为未命中, 不会中断批处理。
func (r *Runner) processFile(path string) bool {
	name := filepath.Base(path)

	fileDate, ok := parseDatePrefix(name)
	if !ok {
		// 日期前缀是硬性要求, 解析失败直接跳过评分
		r.stats.Unmatched++
		r.record(&model.Decision{
			File:    name,
			Contact: "UNMATCHED",
			Reason:  "No parseable date prefix in filename",
		})
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		r.stats.Unmatched++
		r.record(&model.Decision{
			File:    name,
			Contact: "UNMATCHED",
			Date:    fileDate.Format("2006-01-02"),
			Reason:  fmt.Sprintf("Cannot stat file: %v", err),
		})
		return false
	}
	mtime := info.ModTime().UTC()

	fileMediaID := match.MediaIDFromFilename(name)
	candidates := r.idx.CandidatesFor(fileDate)
	res := r.selector.SelectBest(fileMediaID, mtime, fileDate, candidates)

	if !res.Matched {
		r.stats.Unmatched++
		r.record(&model.Decision{
			File:       name,
			Contact:    res.Contact,
			Date:       fileDate.Format("2006-01-02"),
			Score:      res.Total,
			Breakdown:  res.Breakdown,
			Reason:     res.Reason,
			Candidates: res.Candidates,
		})
		return false
	}

	if _, err := r.committer.Commit(path, res.Message, res.Total); err != nil {
		log.Error().Err(err).Str("file", name).Msg("归档文件失败")
		r.stats.Unmatched++
		r.record(&model.Decision{
			File:       name,
			Contact:    "UNMATCHED",
			Date:       fileDate.Format("2006-01-02"),
			Score:      res.Total,
			Breakdown:  res.Breakdown,
			Reason:     fmt.Sprintf("Copy failed: %v", err),
			Candidates: res.Candidates,
		})
		return false
	}

	r.stats.Organized++
	switch res.Tier {
	case model.TierExact:
		r.stats.ExactID++
	case model.TierFuzzy:
		r.stats.FuzzyID++
	default:
		r.stats.TimeBased++
	}
	if res.LowConfidence {
		r.stats.LowConfidence++
	}

	r.record(&model.Decision{
		File:          name,
		Contact:       res.Contact,
		Date:          res.Message.SentAt.UTC().Format("2006-01-02 15:04:05"),
		Matched:       true,
		Tier:          res.Tier,
		Score:         res.Total,
		LowConfidence: res.LowConfidence,
		Breakdown:     res.Breakdown,
		Reason:        report.FormatReason(res.Breakdown),
		Candidates:    res.Candidates,
	})
	return true
}

// relocateUnmatched 把未命中的文件复制到 _Unmatched/<年份|Unknown>/。
func (r *Runner) relocateUnmatched(files []string) {
	for _, f := range files {
		name := filepath.Base(f)
		sub := "Unknown"
		if m := datePrefixRegex.FindStringSubmatch(name); m != nil {
			sub = m[1]
		}
		dir := filepath.Join(r.opts.OutputPath, "_Unmatched", sub)
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Error().Err(err).Str("file", name).Msg("创建 _Unmatched 目录失败")
			continue
		}
		if err := copyFile(f, filepath.Join(dir, name)); err != nil {
			log.Error().Err(err).Str("file", name).Msg("转移未匹配文件失败")
		}
	}
}

func (r *Runner) record(d *model.Decision) {
	if r.opts.CreateDebugReport {
		r.writer.Add(d)
	}
}

func (r *Runner) summary(cancelled bool, reportPath string) *Summary {
	return &Summary{
		Stats:      r.stats,
		Decisions:  r.writer.Records(),
		ReportPath: reportPath,
		Cancelled:  cancelled,
	}
}

// detectMediaDirs 返回导出目录下的 chat_media* 目录, 按名称排序。
func detectMediaDirs(exportPath string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(exportPath, "chat_media*"))
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			dirs = append(dirs, m)
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMediaDirs, exportPath)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// collectFiles 列出所有媒体目录下的普通文件, 排序保证运行结果可复现。
func collectFiles(dirs []string) []string {
	var files []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("读取媒体目录失败")
			continue
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
	}
	sort.Strings(files)
	return files
}

func parseDatePrefix(name string) (time.Time, bool) {
	m := datePrefixRegex.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", m[0])
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
