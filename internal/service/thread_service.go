package service

import (
	"Haven/internal/api/dto"
	"Haven/internal/model"
	"Haven/internal/pkg/consts"
	"Haven/internal/pkg/mongo"
	"Haven/internal/pkg/security"
	"Haven/internal/pkg/util"
	"Haven/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"time"
	"unicode/utf8"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// ThreadService 咨询会话服务接口定义
type ThreadService interface {
	EnsureOpenThread(ctx context.Context, viewer *security.UserClaims, req *dto.OpenThreadReq) (*dto.ThreadDTO, error)
	ListThreads(ctx context.Context, viewer *security.UserClaims, withMessages bool, msgLimit int) ([]*dto.ThreadDTO, error)
	GetThread(ctx context.Context, viewer *security.UserClaims, threadID uint64) (*dto.ThreadDTO, error)
	SendMessage(ctx context.Context, viewer *security.UserClaims, threadID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	GetHistory(ctx context.Context, viewer *security.UserClaims, threadID uint64, beforeID string, pageSize int) ([]*dto.MessageDTO, error)
	MarkRead(ctx context.Context, viewer *security.UserClaims, threadID uint64) error
	CloseThread(ctx context.Context, viewer *security.UserClaims, threadID uint64) (*dto.ThreadDTO, error)

	ListParticipantThreadIDs(ctx context.Context, viewer *security.UserClaims) ([]uint64, error)
	CanJoinThread(ctx context.Context, viewer *security.UserClaims, threadID uint64) bool
}

type threadServiceImpl struct {
	threadRepo  repository.ThreadRepo
	messageRepo mongo.MessageRepo
	notifier    Notifier
}

func NewThreadService(threadRepo repository.ThreadRepo, messageRepo mongo.MessageRepo, notifier Notifier) ThreadService {
	return &threadServiceImpl{
		threadRepo:  threadRepo,
		messageRepo: messageRepo,
		notifier:    notifier,
	}
}

// EnsureOpenThread 开启（或复用）学生的咨询会话，幂等
// 未锁定前允许按请求调整匿名模式；并发重复创建按 find-or-create 处理
func (s *threadServiceImpl) EnsureOpenThread(ctx context.Context, viewer *security.UserClaims, req *dto.OpenThreadReq) (*dto.ThreadDTO, error) {
	if viewer.Role != consts.RoleStudent {
		return nil, ErrStudentOnly
	}

	thread, err := s.threadRepo.GetOpenThreadByStudent(ctx, viewer.UserID)
	if err == nil {
		if !thread.IdentityLocked && req.Anonymous != nil && *req.Anonymous != thread.Anonymous {
			anonymous := *req.Anonymous
			applied, err := s.threadRepo.UpdateIdentityMode(ctx, thread.ID, anonymous, identityModeFor(anonymous))
			if err != nil {
				return nil, UnExpectedError
			}
			// 条件更新未命中说明并发首条消息已完成锁定，保持锁定的模式
			if applied {
				applyIdentityMode(thread, anonymous)
			}
		}
		return s.toThreadDTO(thread, viewer, nil), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, UnExpectedError
	}

	anonymous := req.Anonymous != nil && *req.Anonymous
	openKey := model.OpenKeyFor(viewer.UserID)
	thread = &model.Thread{
		StudentID:     viewer.UserID,
		Status:        consts.ThreadStatusOpen,
		UnreadCounts:  model.UnreadCounts{},
		LastMessageAt: time.Now(),
		OpenKey:       &openKey,
	}
	applyIdentityMode(thread, anonymous)
	thread.UnreadCounts.Reset(viewer.UserID)

	if err := s.threadRepo.CreateThread(ctx, thread); err != nil {
		// 唯一索引兜底：并发重复创建退化为读取已有会话
		if repository.IsDuplicateKey(err) {
			thread, err = s.threadRepo.GetOpenThreadByStudent(ctx, viewer.UserID)
			if err != nil {
				return nil, UnExpectedError
			}
			return s.toThreadDTO(thread, viewer, nil), nil
		}
		return nil, UnExpectedError
	}

	s.notifier.ThreadCreated(ctx, thread)
	return s.toThreadDTO(thread, viewer, nil), nil
}

// ListThreads 会话列表：学生只见自己开启中的会话，咨询师与管理员全局可见
func (s *threadServiceImpl) ListThreads(ctx context.Context, viewer *security.UserClaims, withMessages bool, msgLimit int) ([]*dto.ThreadDTO, error) {
	var threads []*model.Thread

	switch viewer.Role {
	case consts.RoleStudent:
		thread, err := s.threadRepo.GetOpenThreadByStudent(ctx, viewer.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []*dto.ThreadDTO{}, nil
		}
		if err != nil {
			return nil, UnExpectedError
		}
		threads = []*model.Thread{thread}
	case consts.RoleCounselor, consts.RoleAdmin:
		var err error
		threads, err = s.threadRepo.ListAll(ctx)
		if err != nil {
			return nil, UnExpectedError
		}
	default:
		return nil, UnauthorizedError
	}

	res := make([]*dto.ThreadDTO, 0, len(threads))
	for _, t := range threads {
		var msgs []*dto.MessageDTO
		if withMessages {
			models, err := s.messageRepo.GetHistory(ctx, t.ID, "", clampPageSize(msgLimit))
			if err != nil {
				log.WarnContext(ctx, "附带消息加载失败", "thread_id", t.ID, "err", err)
			} else {
				msgs = s.toMessageDTOs(models)
			}
		}
		res = append(res, s.toThreadDTO(t, viewer, msgs))
	}
	return res, nil
}

// GetThread 按 ID 获取会话，应用可见性与掩码规则
func (s *threadServiceImpl) GetThread(ctx context.Context, viewer *security.UserClaims, threadID uint64) (*dto.ThreadDTO, error) {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !CanViewThread(thread, viewer) {
		return nil, UnauthorizedError
	}
	return s.toThreadDTO(thread, viewer, nil), nil
}

// SendMessage 发送消息主链路
// 顺序：校验 → 身份锁 → 认领 → 落库 → 计数 → 实时通知
func (s *threadServiceImpl) SendMessage(ctx context.Context, viewer *security.UserClaims, threadID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	text := util.SanitizeText(req.Text)
	if n := utf8.RuneCountInString(text); n < consts.MessageTextMinLen || n > consts.MessageTextMaxLen {
		return nil, ErrTextInvalid
	}
	if req.SenderMode != "" &&
		req.SenderMode != consts.IdentityModeStudent &&
		req.SenderMode != consts.IdentityModeAnonymous {
		return nil, ErrParamInvalid
	}

	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !CanViewThread(thread, viewer) {
		return nil, UnauthorizedError
	}
	if thread.Status == consts.ThreadStatusClosed {
		return nil, ErrThreadClosed
	}

	now := time.Now()
	claimedNow := false

	switch viewer.Role {
	case consts.RoleCounselor:
		// 他人已接待：写前即拒绝
		if thread.CounselorID != nil && *thread.CounselorID != viewer.UserID {
			return nil, ErrThreadClaimed
		}
		if thread.CounselorID == nil {
			won, err := s.threadRepo.ClaimThread(ctx, thread.ID, viewer.UserID, now)
			if err != nil {
				return nil, UnExpectedError
			}
			if !won {
				// 条件更新未命中：竞争认领落败，消息不落库
				return nil, ErrClaimConflict
			}
			claimedNow = true
			counselorID := viewer.UserID
			thread.CounselorID = &counselorID
			thread.ClaimedAt = &now
			thread.UnassignedUnread = 0
			thread.UnreadCounts.Reset(counselorID)
		}
	case consts.RoleStudent:
		if thread.IdentityLocked {
			if req.SenderMode != "" && req.SenderMode != thread.IdentityMode {
				return nil, ErrIdentityLocked
			}
		} else {
			// 首条学生消息：身份单向锁定，先于消息落库持久化
			anonymous := thread.Anonymous
			if req.SenderMode != "" {
				anonymous = req.SenderMode == consts.IdentityModeAnonymous
			}
			locked, err := s.threadRepo.LockIdentity(ctx, thread.ID, anonymous, identityModeFor(anonymous), now)
			if err != nil {
				return nil, UnExpectedError
			}
			if locked {
				applyIdentityMode(thread, anonymous)
				thread.IdentityLocked = true
				thread.IdentityLockedAt = &now
			} else {
				// 并发请求已完成锁定，按落库的模式重新校验
				thread, err = s.loadThread(ctx, threadID)
				if err != nil {
					return nil, err
				}
				if req.SenderMode != "" && req.SenderMode != thread.IdentityMode {
					return nil, ErrIdentityLocked
				}
			}
		}
	}

	// 幂等键预查：重复提交直接返回已存消息
	if req.ClientID != "" {
		existing, err := s.messageRepo.FindByClientID(ctx, thread.ID, viewer.UserID, req.ClientID)
		if err == nil {
			return s.toMessageDTO(existing), nil
		}
		if !errors.Is(err, mongo.ErrMessageNotFound) {
			return nil, UnExpectedError
		}
	}

	msg := &mongo.Message{
		ThreadID:   thread.ID,
		SenderID:   viewer.UserID,
		SenderRole: viewer.Role,
		Text:       text,
		ClientID:   req.ClientID,
		CreatedAt:  now,
	}
	if err := s.messageRepo.SaveMessage(ctx, msg); err != nil {
		// 唯一索引兜底：并发重复提交返回先到者
		if mongo.IsDuplicateError(err) {
			existing, ferr := s.messageRepo.FindByClientID(ctx, thread.ID, viewer.UserID, req.ClientID)
			if ferr == nil {
				return s.toMessageDTO(existing), nil
			}
		}
		return nil, UnExpectedError
	}

	// 计数规则：发送者清零；学生发送计给接待咨询师或未认领总数，反向计给学生
	thread.UnreadCounts.Reset(viewer.UserID)
	if viewer.Role == consts.RoleStudent {
		if thread.CounselorID != nil {
			thread.UnreadCounts.Increment(*thread.CounselorID)
		} else {
			thread.UnassignedUnread++
		}
	} else {
		thread.UnreadCounts.Increment(thread.StudentID)
	}

	thread.LastMessage = util.TruncateRunes(text, consts.LastMessagePreviewLen)
	thread.LastMessageAt = now

	// 只写回活动相关列，认领与身份列由各自的条件更新负责
	if err := s.threadRepo.UpdateActivity(ctx, thread); err != nil {
		return nil, UnExpectedError
	}

	if claimedNow {
		s.notifier.ThreadClaimed(ctx, thread)
	}
	s.notifier.MessageNew(ctx, thread, s.toMessageDTO(msg))
	if viewer.Role == consts.RoleStudent && thread.CounselorID == nil {
		s.notifier.ThreadUpdated(ctx, thread.ID)
	}

	res := s.toMessageDTO(msg)
	res.ClaimedNow = claimedNow
	return res, nil
}

// GetHistory 拉取历史消息，游标向前翻页
func (s *threadServiceImpl) GetHistory(ctx context.Context, viewer *security.UserClaims, threadID uint64, beforeID string, pageSize int) ([]*dto.MessageDTO, error) {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !CanViewThread(thread, viewer) {
		return nil, UnauthorizedError
	}

	models, err := s.messageRepo.GetHistory(ctx, thread.ID, beforeID, clampPageSize(pageSize))
	if err != nil {
		return nil, UnExpectedError
	}
	return s.toMessageDTOs(models), nil
}

// MarkRead 标记已读：只重置调用者自己的未读项，会话已关闭时为空操作
func (s *threadServiceImpl) MarkRead(ctx context.Context, viewer *security.UserClaims, threadID uint64) error {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return err
	}
	if !CanViewThread(thread, viewer) || !thread.IsParticipant(viewer.UserID) {
		return UnauthorizedError
	}
	if thread.Status == consts.ThreadStatusClosed {
		return nil
	}

	thread.UnreadCounts.Reset(viewer.UserID)
	if err := s.threadRepo.UpdateUnread(ctx, thread); err != nil {
		return UnExpectedError
	}

	s.notifier.ThreadRead(ctx, thread, viewer.UserID)
	return nil
}

// CloseThread 关闭会话，幂等：重复关闭直接返回当前状态，不再触发副作用
// 学生只能关自己的；咨询师只能关自己接待的；未认领会话咨询师不可关
func (s *threadServiceImpl) CloseThread(ctx context.Context, viewer *security.UserClaims, threadID uint64) (*dto.ThreadDTO, error) {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	switch viewer.Role {
	case consts.RoleStudent:
		if thread.StudentID != viewer.UserID {
			return nil, UnauthorizedError
		}
	case consts.RoleCounselor:
		if thread.CounselorID == nil {
			return nil, ErrCloseUnclaimed
		}
		if *thread.CounselorID != viewer.UserID {
			return nil, UnauthorizedError
		}
	case consts.RoleAdmin:
		// 管理员可代为关闭任意会话
	default:
		return nil, UnauthorizedError
	}

	if thread.Status == consts.ThreadStatusClosed {
		return s.toThreadDTO(thread, viewer, nil), nil
	}

	now := time.Now()
	closedBy := viewer.UserID
	thread.Status = consts.ThreadStatusClosed
	thread.ClosedAt = &now
	thread.ClosedBy = &closedBy
	thread.UnreadCounts.ResetAll()
	thread.UnassignedUnread = 0
	thread.OpenKey = nil

	if err := s.threadRepo.CloseThread(ctx, thread); err != nil {
		return nil, UnExpectedError
	}

	s.notifier.ThreadClosed(ctx, thread)
	return s.toThreadDTO(thread, viewer, nil), nil
}

// ListParticipantThreadIDs 连接建立时自动加入的会话频道集合
func (s *threadServiceImpl) ListParticipantThreadIDs(ctx context.Context, viewer *security.UserClaims) ([]uint64, error) {
	var threads []*model.Thread
	var err error

	switch viewer.Role {
	case consts.RoleStudent:
		threads, err = s.threadRepo.ListByStudent(ctx, viewer.UserID)
	case consts.RoleCounselor:
		threads, err = s.threadRepo.ListByCounselor(ctx, viewer.UserID)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, UnExpectedError
	}

	ids := make([]uint64, 0, len(threads))
	for _, t := range threads {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// CanJoinThread 动态加入会话频道的准入判定，复用读权限规则；失败静默
func (s *threadServiceImpl) CanJoinThread(ctx context.Context, viewer *security.UserClaims, threadID uint64) bool {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return false
	}
	return CanViewThread(thread, viewer)
}

func (s *threadServiceImpl) loadThread(ctx context.Context, threadID uint64) (*model.Thread, error) {
	thread, err := s.threadRepo.GetThread(ctx, threadID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, UnExpectedError
	}
	return thread, nil
}

func identityModeFor(anonymous bool) string {
	if anonymous {
		return consts.IdentityModeAnonymous
	}
	return consts.IdentityModeStudent
}

// applyIdentityMode 同步 anonymous 布尔与 identity_mode 字段
func applyIdentityMode(thread *model.Thread, anonymous bool) {
	thread.Anonymous = anonymous
	thread.IdentityMode = identityModeFor(anonymous)
}

// clampPageSize 分页参数兜底，防止调用方拉取任意大的页
func clampPageSize(n int) int {
	if n <= 0 {
		return consts.DefaultPageSize
	}
	if n > consts.MaxPageSize {
		return consts.MaxPageSize
	}
	return n
}

func (s *threadServiceImpl) toThreadDTO(thread *model.Thread, viewer *security.UserClaims, msgs []*dto.MessageDTO) *dto.ThreadDTO {
	d := &dto.ThreadDTO{}
	if err := copier.Copy(d, thread); err != nil {
		log.Error("会话 DTO 映射失败", "thread_id", thread.ID, "err", err)
	}
	d.StudentID = VisibleStudentID(thread, viewer)
	d.UnreadCount = thread.UnreadCounts.Get(viewer.UserID)
	d.Messages = msgs
	return d
}

func (s *threadServiceImpl) toMessageDTO(m *mongo.Message) *dto.MessageDTO {
	return &dto.MessageDTO{
		ID: m.ID, ThreadID: m.ThreadID, SenderID: m.SenderID,
		SenderRole: m.SenderRole, Text: m.Text, ClientID: m.ClientID,
		CreatedAt: m.CreatedAt,
	}
}

func (s *threadServiceImpl) toMessageDTOs(models []*mongo.Message) []*dto.MessageDTO {
	res := make([]*dto.MessageDTO, 0, len(models))
	for _, m := range models {
		res = append(res, s.toMessageDTO(m))
	}
	return res
}
