package dto

// SysBoxDTO 系统通知返回对象
type SysBoxDTO struct {
	ID         string         `json:"id"`
	SenderID   uint64         `json:"sender_id"`
	SenderName string         `json:"sender_name"`
	Type       int8           `json:"type"`      // 11-推荐, 12-错过机会, 13-停用警告, 14-已停用
	Stage      string         `json:"stage"`
	ServiceIDs []uint64       `json:"service_ids,omitempty"`
	Deadline   string         `json:"deadline,omitempty"`
	Expired    bool           `json:"expired"` // 停用警告的宽限期已过
	TargetID   uint64         `json:"target_id"` // 关联的服务或漏斗记录ID
	Content    string         `json:"content"`
	Payload    map[string]any `json:"payload"`
	IsRead     bool           `json:"is_read"`
	CreatedAt  string         `json:"created_at"`
}

// SysBoxUnreadDTO 未读数返回
type SysBoxUnreadDTO struct {
	UnreadCount int64 `json:"unread_count"`
}

type MarkReadDTO struct {
	MsgID string `json:"msg_id" binding:"required,len=24,hexadecimal"`
}
