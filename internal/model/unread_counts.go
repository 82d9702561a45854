package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// UnreadCounts 参与者未读计数容器，key 为用户 ID 的十进制串
// 序列化时 map key 按字典序输出，保证落库内容可复现
type UnreadCounts map[string]int64

// Increment 指定用户未读数 +1
func (m UnreadCounts) Increment(userID uint64) {
	m[strconv.FormatUint(userID, 10)]++
}

// Reset 指定用户未读数归零
func (m UnreadCounts) Reset(userID uint64) {
	m[strconv.FormatUint(userID, 10)] = 0
}

// ResetAll 所有参与者未读数归零（关闭会话时调用）
func (m UnreadCounts) ResetAll() {
	for k := range m {
		m[k] = 0
	}
}

// Get 读取指定用户未读数，不存在视为 0
func (m UnreadCounts) Get(userID uint64) int64 {
	return m[strconv.FormatUint(userID, 10)]
}

// Value 实现 driver.Valuer，序列化为 JSON 存入 MySQL
func (m UnreadCounts) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner
func (m *UnreadCounts) Scan(value interface{}) error {
	if value == nil {
		*m = UnreadCounts{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法解析 unread_counts 列类型: %T", value)
	}

	if len(data) == 0 {
		*m = UnreadCounts{}
		return nil
	}
	return json.Unmarshal(data, m)
}
