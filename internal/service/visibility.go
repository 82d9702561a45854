package service

import (
	"Haven/internal/model"
	"Haven/internal/pkg/consts"
	"Haven/internal/pkg/security"
)

// CanViewThread 会话读权限：学生只能看自己的会话，咨询师与管理员全局可读
// 所有读写路径（含 Websocket 加入频道）复用同一条规则
func CanViewThread(thread *model.Thread, viewer *security.UserClaims) bool {
	switch viewer.Role {
	case consts.RoleStudent:
		return thread.StudentID == viewer.UserID
	case consts.RoleCounselor, consts.RoleAdmin:
		return true
	default:
		return false
	}
}

// VisibleStudentID 掩码规则：匿名始终优先于接待关系
// 仅当会话非匿名且由查看者本人接待时，才向咨询师暴露学生 ID；学生看自己不掩码
func VisibleStudentID(thread *model.Thread, viewer *security.UserClaims) *uint64 {
	if viewer.Role == consts.RoleStudent && thread.StudentID == viewer.UserID {
		id := thread.StudentID
		return &id
	}
	if !thread.Anonymous && thread.CounselorID != nil && *thread.CounselorID == viewer.UserID {
		id := thread.StudentID
		return &id
	}
	return nil
}
