package dto

import "time"

// OpenThreadReq 开启咨询会话请求体（学生端）
type OpenThreadReq struct {
	Anonymous *bool `json:"anonymous"` // 缺省沿用已有会话的模式
}

// SendMessageReq 发送消息请求体
type SendMessageReq struct {
	Text       string `json:"text" binding:"required"`
	ClientID   string `json:"client_id"`   // 调用方幂等键，可选
	SenderMode string `json:"sender_mode"` // student / anonymous，仅学生端有效
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID         string    `json:"id"`
	ThreadID   uint64    `json:"thread_id"`
	SenderID   uint64    `json:"sender_id"`
	SenderRole string    `json:"sender_role"`
	Text       string    `json:"text"`
	ClientID   string    `json:"client_id,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`

	ClaimedNow bool `json:"claimed_now,omitempty"` // 本次发送是否完成了认领
}

// ThreadDTO 会话响应
// StudentID 按可见性规则掩码：匿名会话或非接待咨询师视角下为 null
type ThreadDTO struct {
	ID               uint64        `json:"id"`
	StudentID        *uint64       `json:"student_id"`
	CounselorID      *uint64       `json:"counselor_id"`
	ClaimedAt        *time.Time    `json:"claimed_at"`
	Anonymous        bool          `json:"anonymous"`
	IdentityMode     string        `json:"identity_mode"`
	IdentityLocked   bool          `json:"identity_locked"`
	IdentityLockedAt *time.Time    `json:"identity_locked_at"`
	Status           string        `json:"status"`
	ClosedAt         *time.Time    `json:"closed_at"`
	ClosedBy         *uint64       `json:"closed_by"`
	LastMessage      string        `json:"last_message"`
	LastMessageAt    time.Time     `json:"lastMessageAt"`
	UnreadCount      int64         `json:"unreadCount"` // 当前查看者自己的未读数
	UnassignedUnread int64         `json:"unassigned_unread"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	Messages         []*MessageDTO `json:"messages,omitempty"` // withMessages=1 时附带
}
