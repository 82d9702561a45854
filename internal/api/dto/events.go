package dto

// 实时事件类型
const (
	EventThreadCreated = "thread:created"
	EventThreadUpdate  = "thread:update"
	EventThreadClaimed = "thread:claimed"
	EventMessageNew    = "message:new"
	EventThreadRead    = "thread:read"
	EventThreadClosed  = "thread:closed"
	EventThreadJoin    = "thread:join" // 仅入站：客户端请求加入会话频道
)

// ThreadEventDTO 会话维度事件
// 角色频道只投递该结构：元数据，不含消息正文与学生身份
type ThreadEventDTO struct {
	Type        string  `json:"type"`
	ThreadID    uint64  `json:"thread_id"`
	CounselorID *uint64 `json:"counselor_id,omitempty"`
}

// MessageEventDTO 新消息事件，投递到会话频道与参与者个人频道
type MessageEventDTO struct {
	Type    string          `json:"type"`
	Message *MessageDTO     `json:"message"`
	Thread  *ThreadEventDTO `json:"thread"`
}

// ReadEventDTO 已读事件
type ReadEventDTO struct {
	Type     string `json:"type"`
	ThreadID uint64 `json:"thread_id"`
	UserID   uint64 `json:"user_id"`
}

// JoinReq 客户端经 Websocket 发送的加入会话频道请求
type JoinReq struct {
	Type     string `json:"type"` // thread:join
	ThreadID uint64 `json:"thread_id"`
}
