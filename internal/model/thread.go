package model

import (
	"fmt"
	"time"
)

// Thread 咨询会话主表
// 一个学生同一时刻至多一条 open 会话，由 OpenKey 唯一索引保证；
// 关闭后 OpenKey 置空，同一学生可再次开启新会话
type Thread struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID uint64 `gorm:"not null;index" json:"studentId"`

	CounselorID *uint64    `gorm:"index" json:"counselorId"` // 认领后不可变更
	ClaimedAt   *time.Time `json:"claimedAt"`

	Anonymous        bool       `gorm:"not null;default:0" json:"anonymous"`
	IdentityMode     string     `gorm:"type:varchar(16);not null;default:'student'" json:"identityMode"`
	IdentityLocked   bool       `gorm:"not null;default:0" json:"identityLocked"` // 单向 false→true
	IdentityLockedAt *time.Time `json:"identityLockedAt"`

	Status   string     `gorm:"type:varchar(16);not null;default:'open';index" json:"status"`
	ClosedAt *time.Time `json:"closedAt"`
	ClosedBy *uint64    `json:"closedBy"`

	LastMessage   string    `gorm:"type:varchar(255)" json:"lastMessage"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`

	UnreadCounts     UnreadCounts `gorm:"type:json" json:"unreadCounts"`
	UnassignedUnread int64        `gorm:"not null;default:0" json:"unassignedUnread"` // 未认领期间的待处理计数

	// OpenKey 开启期间为 s:<student_id>，关闭后为 NULL
	// 并发重复创建会命中唯一索引，按 find-or-create 处理
	OpenKey *string `gorm:"uniqueIndex;type:varchar(32)" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Thread) TableName() string { return "threads" }

// OpenKeyFor 生成学生开启态唯一键
func OpenKeyFor(studentID uint64) string {
	return fmt.Sprintf("s:%d", studentID)
}

// Participants 会话参与者集合：学生 + 已认领的咨询师
func (t *Thread) Participants() []uint64 {
	ids := []uint64{t.StudentID}
	if t.CounselorID != nil {
		ids = append(ids, *t.CounselorID)
	}
	return ids
}

// IsParticipant 判断用户是否为会话参与者
func (t *Thread) IsParticipant(userID uint64) bool {
	for _, id := range t.Participants() {
		if id == userID {
			return true
		}
	}
	return false
}
