package model

// MatchTier 标识一次匹配命中的策略层级。
type MatchTier string

const (
	TierExact MatchTier = "exact"      // 媒体标识完全一致
	TierFuzzy MatchTier = "fuzzy"      // 媒体标识部分重叠
	TierTime  MatchTier = "time-based" // 仅依赖时间信号
)

// ScoreBreakdown 记录组合评分的各个子项。
// 总分恒等于子项按当前权重方案的加权和。
type ScoreBreakdown struct {
	MediaIDScore     float64 `json:"media_id_score"`
	TimeDiffScore    float64 `json:"time_diff_score"`
	TimeDiffSeconds  float64 `json:"time_diff_seconds"`
	SameDayScore     float64 `json:"same_day_score"`
	ContactFreqScore float64 `json:"contact_freq_score"`
}

// MatchCandidate 是单个文件评分过程中的临时候选项。
type MatchCandidate struct {
	Message   *LoggedMessage
	Total     float64
	Breakdown ScoreBreakdown
}

// MatchResult 是匹配引擎对单个文件的最终裁决。
type MatchResult struct {
	Matched       bool
	Message       *LoggedMessage // 仅在 Matched 时有效
	Contact       string
	Total         float64
	Breakdown     ScoreBreakdown
	Tier          MatchTier
	LowConfidence bool
	Reason        string
	Candidates    int // 参与竞争的候选数
}

// Statistics 是一次整理运行的计数器, 只增不减, 运行开始时清零。
type Statistics struct {
	Total         int `json:"total"`
	Organized     int `json:"organized"`
	Unmatched     int `json:"unmatched"`
	LowConfidence int `json:"low_confidence"`
	ExactID       int `json:"exact_id"`
	FuzzyID       int `json:"fuzzy_id"`
	TimeBased     int `json:"time_based"`
}

// OrganizeOptions 是一次整理运行的全部配置, 按值传入引擎。
type OrganizeOptions struct {
	ExportPath                string  `mapstructure:"export_path" json:"export_path"`
	OutputPath                string  `mapstructure:"output_path" json:"output_path"`
	TimestampThresholdSeconds float64 `mapstructure:"timestamp_threshold_seconds" json:"timestamp_threshold_seconds"`
	MatchScoreThreshold       float64 `mapstructure:"match_score_threshold" json:"match_score_threshold"`
	EnableTier1               bool    `mapstructure:"enable_tier1" json:"enable_tier1"`
	EnableTier2               bool    `mapstructure:"enable_tier2" json:"enable_tier2"`
	EnableTier3               bool    `mapstructure:"enable_tier3" json:"enable_tier3"`
	OrganizeByYear            bool    `mapstructure:"organize_by_year" json:"organize_by_year"`
	CreateDebugReport         bool    `mapstructure:"create_debug_report" json:"create_debug_report"`
	PreserveOriginals         bool    `mapstructure:"preserve_originals" json:"preserve_originals"`
}

// DefaultOptions 返回引擎的默认配置。
func DefaultOptions() OrganizeOptions {
	return OrganizeOptions{
		TimestampThresholdSeconds: 7200,
		MatchScoreThreshold:       0.45,
		EnableTier1:               true,
		EnableTier2:               true,
		EnableTier3:               true,
		OrganizeByYear:            true,
		CreateDebugReport:         true,
		PreserveOriginals:         false,
	}
}
