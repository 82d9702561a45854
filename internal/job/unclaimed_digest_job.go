package job

import (
	"Haven/internal/pkg/logger"
	"Haven/internal/repository"
	"Haven/internal/service"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// UnclaimedDigestJob 未认领会话日报
// 统计有待处理动态的未认领会话，向咨询师角色频道推送重取信号，
// 并投递日报事件给下游邮件通知管道
type UnclaimedDigestJob struct {
	threadRepo repository.ThreadRepo
	notifier   service.Notifier
}

func NewUnclaimedDigestJob(threadRepo repository.ThreadRepo, notifier service.Notifier) *UnclaimedDigestJob {
	return &UnclaimedDigestJob{
		threadRepo: threadRepo,
		notifier:   notifier,
	}
}

func (s *UnclaimedDigestJob) Run() {
	traceID := "job-digest-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	count, err := s.threadRepo.CountUnclaimedPending(ctx)
	if err != nil {
		log.ErrorContext(ctx, "统计未认领会话失败", "err", err)
		return
	}

	log.InfoContext(ctx, "UnclaimedDigestJob processing", "pending_count", count)

	if count == 0 {
		return
	}

	s.notifier.DigestPending(ctx, count)
}
