package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrMessageNotFound 消息不存在
var ErrMessageNotFound = errors.New("消息不存在")

type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *Message) error
	FindByClientID(ctx context.Context, threadID, senderID uint64, clientID string) (*Message, error)
	GetHistory(ctx context.Context, threadID uint64, beforeID string, pageSize int) ([]*Message, error)
	CountByThread(ctx context.Context, threadID uint64) (int64, error)
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection("messages"),
	}
}

// ensureMessageIndexes 建立消息集合索引
// client_id 唯一索引为部分索引，仅覆盖携带幂等键的消息
func ensureMessageIndexes(ctx context.Context, db *mongo.Database) error {
	col := db.Collection("messages")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "thread_id", Value: 1}, {Key: "_id", Value: -1}},
		},
		{
			Keys: bson.D{
				{Key: "thread_id", Value: 1},
				{Key: "sender_id", Value: 1},
				{Key: "client_id", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"client_id": bson.M{"$exists": true}}),
		},
	})
	return err
}

// SaveMessage 将消息存入 MongoDB
// 命中幂等索引时返回的错误可用 IsDuplicateError 识别
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = primitive.NewObjectID().Hex()
	}
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

// IsDuplicateError 判断是否为幂等键冲突
func IsDuplicateError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// FindByClientID 按幂等键精确查询
func (s *messageRepoImpl) FindByClientID(ctx context.Context, threadID, senderID uint64, clientID string) (*Message, error) {
	var msg Message
	filter := bson.M{
		"thread_id": threadID,
		"sender_id": senderID,
		"client_id": clientID,
	}
	err := s.col.FindOne(ctx, filter).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetHistory 历史消息查询逻辑
// beforeID 为当前页面最旧一条消息的 ID。如果是第一页，传空串。
func (s *messageRepoImpl) GetHistory(ctx context.Context, threadID uint64, beforeID string, pageSize int) ([]*Message, error) {
	// 基础过滤：指定会话 ID
	filter := bson.M{"thread_id": threadID}

	// 游标过滤：拉取比当前最旧一条更早的消息
	if beforeID != "" {
		filter["_id"] = bson.M{"$lt": beforeID}
	}

	// 按 _id 降序排列（最新的在前），限制返回条数
	findOptions := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(pageSize))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// CountByThread 统计会话消息总量
func (s *messageRepoImpl) CountByThread(ctx context.Context, threadID uint64) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"thread_id": threadID})
}
