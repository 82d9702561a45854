package consts

// 角色标识，由上游身份系统签发
const (
	RoleStudent   = "STUDENT"
	RoleCounselor = "COUNSELOR"
	RoleAdmin     = "ADMIN"
)

// 会话状态
const (
	ThreadStatusOpen   = "open"
	ThreadStatusClosed = "closed"
)

// 学生身份模式
const (
	IdentityModeStudent   = "student"
	IdentityModeAnonymous = "anonymous"
)

// 消息文本长度限制（按字符计）
const (
	MessageTextMinLen = 1
	MessageTextMaxLen = 2000
)

// LastMessagePreviewLen 会话预览截断长度
const LastMessagePreviewLen = 255

// 历史消息分页限制
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
