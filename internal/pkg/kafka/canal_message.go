package kafka

const canalInsert = "INSERT"

// CanalMessage canal 推送的行变更，只解析消费侧用到的字段
type CanalMessage struct {
	Database string `json:"database"`
	Table    string `json:"table"`
	IsDDL    bool   `json:"isDdl"`
	Type     string `json:"type"`
	// ES binlog 时间，毫秒
	ES int64 `json:"es"`

	// Data 变更后的行，canal 把所有列值编码成字符串
	Data []map[string]interface{} `json:"data"`
}

// InsertedRows 只有 INSERT 事件返回行，UPDATE/DELETE/DDL 返回 nil
func (m *CanalMessage) InsertedRows() []map[string]interface{} {
	if m.IsDDL || m.Type != canalInsert {
		return nil
	}
	return m.Data
}
