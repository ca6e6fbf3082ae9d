package model

import "time"

// LoggedMessage 表示 chat_history.json 中一条携带媒体的消息。
// 加载完成后不再修改。
type LoggedMessage struct {
	TimestampMicros int64     `json:"timestamp_micros"`
	Contact         string    `json:"contact"`
	SentAt          time.Time `json:"sent_at"` // 始终为 UTC
	RawMediaID      string    `json:"raw_media_id"`
	MediaID         string    `json:"media_id"` // 规范化后的小写标识, 可能为空
	IsSender        bool      `json:"is_sender"`
	IsSaved         bool      `json:"is_saved"`
}

// Direction 返回消息方向的可读描述。
func (m *LoggedMessage) Direction() string {
	if m.IsSender {
		return "sent"
	}
	return "received"
}
