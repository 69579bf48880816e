package kafka

import (
	"strconv"
	"strings"
	"time"
)

// Canal 事件类型
const (
	INSERT = "INSERT"
	UPDATE = "UPDATE"
	DELETE = "DELETE"
)

// CanalMessage 定义了 Canal 推送到 Kafka 的 JSON 数据结构
type CanalMessage struct {
	ID       int64    `json:"id"`
	Database string   `json:"database"`
	Table    string   `json:"table"`
	PKNames  []string `json:"pkNames"`
	IsDDL    bool     `json:"isDdl"`
	Type     string   `json:"type"`
	ES       int64    `json:"es"`
	TS       int64    `json:"ts"`
	SQL      string   `json:"sql"`

	// Data 存储变更后的数据
	Data []map[string]interface{} `json:"data"`

	// Old 存储变更前的数据
	Old []map[string]interface{} `json:"old"`

	// 字段类型元数据
	SqlType   map[string]int    `json:"sqlType"`   // JDBC 类型 ID
	MysqlType map[string]string `json:"mysqlType"` // MySQL 类型描述
}

// canal 的 flatMessage 中所有列值都是字符串，NULL 为 nil

func StrToString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func StrToUint64(v interface{}) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(StrToString(v)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// StrToBool 兼容 tinyint(1) 的 "1"/"0" 与 "true"/"false"
func StrToBool(v interface{}) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(StrToString(v)))
	if err != nil {
		return false
	}
	return b
}

// StrToTime 解析 MySQL datetime，失败返回零值
func StrToTime(v interface{}) time.Time {
	s := StrToString(v)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02 15:04:05.999999", "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
