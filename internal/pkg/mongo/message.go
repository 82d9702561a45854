package mongo

import (
	"time"
)

// Message MongoDB 消息明细模型，只增不改
type Message struct {
	ID         string    `bson:"_id,omitempty" json:"id"`             // MongoDB 自动生成的 ObjectID
	ThreadID   uint64    `bson:"thread_id" json:"threadId"`           // 关联 MySQL 的会话 ID
	SenderID   uint64    `bson:"sender_id" json:"senderId"`           // 发送者 UID
	SenderRole string    `bson:"sender_role" json:"senderRole"`       // STUDENT / COUNSELOR / ADMIN
	Text       string    `bson:"text" json:"text"`                    // 清洗后的文本内容
	ClientID   string    `bson:"client_id,omitempty" json:"clientId"` // 调用方幂等键，可选
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`         // 消息发送时间
}
