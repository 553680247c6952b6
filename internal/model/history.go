package model

import (
	"encoding/json"

	"mailorder/internal/event"
)

// StatusEntry 是状态历史账本中的一个 {status, at} 对。
type StatusEntry struct {
	Status event.Status `json:"status"`
	At     string       `json:"at"`
}

// EncodeHistory 把历史序列化成紧凑 JSON 数组列值；空历史存空串。
func EncodeHistory(hist []StatusEntry) string {
	if len(hist) == 0 {
		return ""
	}
	b, err := json.Marshal(hist)
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeHistory 反序列化历史列；空串或坏数据返回 nil，不报错。
func DecodeHistory(raw string) []StatusEntry {
	if raw == "" {
		return nil
	}
	var hist []StatusEntry
	if err := json.Unmarshal([]byte(raw), &hist); err != nil {
		return nil
	}
	return hist
}
