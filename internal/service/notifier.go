package service

import (
	"Haven/internal/api/dto"
	"Haven/internal/model"
	"Haven/internal/pkg/consts"
	"Haven/internal/pkg/kafka"
	"Haven/internal/pkg/redis"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Notifier 实时通知服务接口定义
// 所有方法均为尽力而为：投递失败只记日志，绝不影响请求主链路
type Notifier interface {
	ThreadCreated(ctx context.Context, thread *model.Thread)
	ThreadUpdated(ctx context.Context, threadID uint64)
	ThreadClaimed(ctx context.Context, thread *model.Thread)
	MessageNew(ctx context.Context, thread *model.Thread, msg *dto.MessageDTO)
	ThreadRead(ctx context.Context, thread *model.Thread, userID uint64)
	ThreadClosed(ctx context.Context, thread *model.Thread)
	DigestPending(ctx context.Context, count int64)
}

type notifierImpl struct {
	producer *kafka.Producer
}

func NewNotifier(producer *kafka.Producer) Notifier {
	return &notifierImpl{producer: producer}
}

// UserChannel 用户个人频道名
func UserChannel(userID uint64) string {
	return consts.CounselUserKey + strconv.FormatUint(userID, 10)
}

// ThreadChannel 会话参与者频道名
func ThreadChannel(threadID uint64) string {
	return consts.CounselThreadKey + strconv.FormatUint(threadID, 10)
}

// publish 序列化并投递到若干 Redis 频道，失败静默
func (s *notifierImpl) publish(ctx context.Context, payload interface{}, channels ...string) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.ErrorContext(ctx, "实时事件序列化失败", "err", err)
		return
	}
	for _, ch := range channels {
		if err := redis.Publish(ctx, ch, data); err != nil {
			log.ErrorContext(ctx, "实时事件投递失败", "channel", ch, "err", err)
		}
	}
}

// ThreadCreated 新会话事件：仅元数据，推送到咨询师角色频道
func (s *notifierImpl) ThreadCreated(ctx context.Context, thread *model.Thread) {
	s.publish(ctx, &dto.ThreadEventDTO{
		Type:     dto.EventThreadCreated,
		ThreadID: thread.ID,
	}, consts.CounselRoleCounselorKey)

	s.producer.Publish(&kafka.ThreadEvent{
		Type:      kafka.EventTypeThreadCreated,
		ThreadID:  thread.ID,
		Timestamp: time.Now().Unix(),
	})
}

// ThreadUpdated 通用重取信号，推送到咨询师角色频道
func (s *notifierImpl) ThreadUpdated(ctx context.Context, threadID uint64) {
	s.publish(ctx, &dto.ThreadEventDTO{
		Type:     dto.EventThreadUpdate,
		ThreadID: threadID,
	}, consts.CounselRoleCounselorKey)
}

// ThreadClaimed 认领事件，携带新归属，推送到咨询师角色频道
func (s *notifierImpl) ThreadClaimed(ctx context.Context, thread *model.Thread) {
	s.publish(ctx, &dto.ThreadEventDTO{
		Type:        dto.EventThreadClaimed,
		ThreadID:    thread.ID,
		CounselorID: thread.CounselorID,
	}, consts.CounselRoleCounselorKey)

	if thread.CounselorID != nil {
		s.producer.Publish(&kafka.ThreadEvent{
			Type:        kafka.EventTypeThreadClaimed,
			ThreadID:    thread.ID,
			CounselorID: *thread.CounselorID,
			Timestamp:   time.Now().Unix(),
		})
	}
}

// MessageNew 新消息事件：完整消息，推送到会话频道与参与者个人频道
func (s *notifierImpl) MessageNew(ctx context.Context, thread *model.Thread, msg *dto.MessageDTO) {
	channels := []string{ThreadChannel(thread.ID)}
	for _, uid := range thread.Participants() {
		channels = append(channels, UserChannel(uid))
	}

	s.publish(ctx, &dto.MessageEventDTO{
		Type:    dto.EventMessageNew,
		Message: msg,
		Thread: &dto.ThreadEventDTO{
			Type:     dto.EventMessageNew,
			ThreadID: thread.ID,
		},
	}, channels...)
}

// ThreadRead 已读事件，推送到操作者个人频道与会话频道
func (s *notifierImpl) ThreadRead(ctx context.Context, thread *model.Thread, userID uint64) {
	s.publish(ctx, &dto.ReadEventDTO{
		Type:     dto.EventThreadRead,
		ThreadID: thread.ID,
		UserID:   userID,
	}, UserChannel(userID), ThreadChannel(thread.ID))
}

// ThreadClosed 关闭事件，推送到会话频道与双方个人频道
func (s *notifierImpl) ThreadClosed(ctx context.Context, thread *model.Thread) {
	channels := []string{ThreadChannel(thread.ID)}
	for _, uid := range thread.Participants() {
		channels = append(channels, UserChannel(uid))
	}

	s.publish(ctx, &dto.ThreadEventDTO{
		Type:     dto.EventThreadClosed,
		ThreadID: thread.ID,
	}, channels...)

	s.producer.Publish(&kafka.ThreadEvent{
		Type:      kafka.EventTypeThreadClosed,
		ThreadID:  thread.ID,
		Timestamp: time.Now().Unix(),
	})
}

// DigestPending 未认领会话日报信号：角色频道重取提示 + Kafka 日报事件
func (s *notifierImpl) DigestPending(ctx context.Context, count int64) {
	s.publish(ctx, &dto.ThreadEventDTO{
		Type: dto.EventThreadUpdate,
	}, consts.CounselRoleCounselorKey)

	s.producer.Publish(&kafka.ThreadEvent{
		Type:      kafka.EventTypeDigest,
		Count:     count,
		Timestamp: time.Now().Unix(),
	})
}
