package chatlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/M0hammedHaris/snaptrace/internal/model"
	"github.com/M0hammedHaris/snaptrace/match"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingLog 聊天记录文件不存在
	ErrMissingLog = errors.New("chat history file not found")
	// ErrMalformedLog 聊天记录无法按预期结构解析
	ErrMalformedLog = errors.New("chat history is not valid JSON")
)

// 时间字段形如 "2024-01-05 10:00:00 UTC", 去掉后缀后按 UTC 解析。
const createdLayout = "2006-01-02 15:04:05"

// Index 保存按微秒时间戳索引的媒体消息与各联系人的活动时间线。
// 构建完成后只读, 可安全并发访问。
type Index struct {
	Messages map[int64]*model.LoggedMessage
	Activity map[string][]time.Time
}

// rawMessage 对应导出 JSON 中单条消息的字段。
type rawMessage struct {
	MediaType     string `json:"Media Type"`
	Created       string `json:"Created"`
	CreatedMicros int64  `json:"Created(microseconds)"`
	MediaIDs      string `json:"Media IDs"`
	IsSender      bool   `json:"IsSender"`
	IsSaved       bool   `json:"IsSaved"`
}

// Load 解析 chat_history.json 并建立索引。
// 单条消息的时间解析失败只会跳过该条, 不会中断整体加载。
func Load(logPath string) (*Index, error) {
	data, err := os.ReadFile(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingLog, logPath)
		}
		return nil, fmt.Errorf("读取聊天记录失败: %w", err)
	}

	var chats map[string][]rawMessage
	if err := json.Unmarshal(data, &chats); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}

	idx := &Index{
		Messages: make(map[int64]*model.LoggedMessage),
		Activity: make(map[string][]time.Time),
	}

	skipped := 0
	for contact, messages := range chats {
		for _, raw := range messages {
			if !isMediaType(raw.MediaType) {
				continue
			}
			sentAt, ok := parseCreated(raw.Created)
			if !ok {
				skipped++
				continue
			}
			if prev, exists := idx.Messages[raw.CreatedMicros]; exists {
				// 重复的微秒时间戳: 后写覆盖, 与导出端的去重行为一致。
				// 被覆盖消息的活动样本一并移除, 否则会虚增该联系人的活跃度。
				idx.dropActivity(prev.Contact, prev.SentAt)
				log.Debug().
					Int64("ts_micros", raw.CreatedMicros).
					Str("prev_contact", prev.Contact).
					Str("contact", contact).
					Msg("时间戳冲突, 覆盖旧条目")
			}
			idx.Messages[raw.CreatedMicros] = &model.LoggedMessage{
				TimestampMicros: raw.CreatedMicros,
				Contact:         contact,
				SentAt:          sentAt,
				RawMediaID:      raw.MediaIDs,
				MediaID:         match.NormalizeMediaID(raw.MediaIDs),
				IsSender:        raw.IsSender,
				IsSaved:         raw.IsSaved,
			}
			idx.Activity[contact] = append(idx.Activity[contact], sentAt)
		}
	}

	log.Info().
		Int("messages", len(idx.Messages)).
		Int("contacts", len(chats)).
		Int("skipped", skipped).
		Msg("聊天记录索引构建完成")
	return idx, nil
}

// LoadFromExport 按导出目录的固定布局定位 chat_history.json 并加载。
func LoadFromExport(exportPath string) (*Index, error) {
	return Load(filepath.Join(exportPath, "chat_history", "json", "chat_history.json"))
}

// CandidatesFor 返回 UTC 日历日期落在 fileDate ±1 天内的全部消息,
// 按微秒时间戳升序。±1 天的窗口用于吸收最多 24 小时的时区偏移。
func (idx *Index) CandidatesFor(fileDate time.Time) []*model.LoggedMessage {
	d := fileDate.UTC()
	want := map[string]struct{}{
		d.AddDate(0, 0, -1).Format("2006-01-02"): {},
		d.Format("2006-01-02"):                   {},
		d.AddDate(0, 0, 1).Format("2006-01-02"):  {},
	}

	var out []*model.LoggedMessage
	for _, msg := range idx.Messages {
		if _, ok := want[msg.SentAt.UTC().Format("2006-01-02")]; ok {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TimestampMicros < out[j].TimestampMicros
	})
	return out
}

// dropActivity 移除联系人活动时间线中一个匹配的样本。
func (idx *Index) dropActivity(contact string, sentAt time.Time) {
	times := idx.Activity[contact]
	for i := len(times) - 1; i >= 0; i-- {
		if times[i].Equal(sentAt) {
			idx.Activity[contact] = append(times[:i], times[i+1:]...)
			return
		}
	}
}

// isMediaType 判断消息类型是否携带媒体。旧版导出的类型标签存在变体,
// 用子串匹配兜底。
func isMediaType(t string) bool {
	switch t {
	case "MEDIA", "VIDEO", "IMAGE", "AUDIO":
		return true
	}
	return t != "" && strings.Contains(t, "MEDIA")
}

func parseCreated(s string) (time.Time, bool) {
	t, err := time.Parse(createdLayout, strings.TrimSpace(strings.ReplaceAll(s, " UTC", "")))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
