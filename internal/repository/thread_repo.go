package repository

import (
	"Haven/internal/model"
	"Haven/internal/pkg/consts"
	"context"
	"errors"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type ThreadRepo interface {
	CreateThread(ctx context.Context, thread *model.Thread) error
	GetThread(ctx context.Context, threadID uint64) (*model.Thread, error)
	GetOpenThreadByStudent(ctx context.Context, studentID uint64) (*model.Thread, error)
	ListByStudent(ctx context.Context, studentID uint64) ([]*model.Thread, error)
	ListByCounselor(ctx context.Context, counselorID uint64) ([]*model.Thread, error)
	ListAll(ctx context.Context) ([]*model.Thread, error)

	ClaimThread(ctx context.Context, threadID, counselorID uint64, claimedAt time.Time) (bool, error)
	UpdateIdentityMode(ctx context.Context, threadID uint64, anonymous bool, mode string) (bool, error)
	LockIdentity(ctx context.Context, threadID uint64, anonymous bool, mode string, lockedAt time.Time) (bool, error)
	UpdateActivity(ctx context.Context, thread *model.Thread) error
	UpdateUnread(ctx context.Context, thread *model.Thread) error
	CloseThread(ctx context.Context, thread *model.Thread) error

	CountUnclaimedPending(ctx context.Context) (int64, error)
}

type threadRepoImpl struct {
	db *gorm.DB
}

func NewThreadRepo(db *gorm.DB) ThreadRepo {
	return &threadRepoImpl{db: db}
}

// IsDuplicateKey 判断是否为唯一索引冲突（并发重复创建）
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// CreateThread 创建会话，OpenKey 唯一索引拦截同一学生的并发重复创建
func (s *threadRepoImpl) CreateThread(ctx context.Context, thread *model.Thread) error {
	return s.db.WithContext(ctx).Create(thread).Error
}

// GetThread 根据会话 ID 获取会话
func (s *threadRepoImpl) GetThread(ctx context.Context, threadID uint64) (*model.Thread, error) {
	var thread model.Thread
	err := s.db.WithContext(ctx).First(&thread, threadID).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetOpenThreadByStudent 查询学生当前开启中的会话
func (s *threadRepoImpl) GetOpenThreadByStudent(ctx context.Context, studentID uint64) (*model.Thread, error) {
	var thread model.Thread
	err := s.db.WithContext(ctx).
		Where("open_key = ?", model.OpenKeyFor(studentID)).
		First(&thread).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// ListByStudent 学生视角会话列表
func (s *threadRepoImpl) ListByStudent(ctx context.Context, studentID uint64) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("last_message_at DESC").
		Find(&threads).Error
	return threads, err
}

// ListByCounselor 咨询师已接待的会话列表
func (s *threadRepoImpl) ListByCounselor(ctx context.Context, counselorID uint64) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := s.db.WithContext(ctx).
		Where("counselor_id = ?", counselorID).
		Order("last_message_at DESC").
		Find(&threads).Error
	return threads, err
}

// ListAll 咨询师/管理员视角全量会话列表，未认领在前
func (s *threadRepoImpl) ListAll(ctx context.Context) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := s.db.WithContext(ctx).
		Order("counselor_id IS NULL DESC, last_message_at DESC").
		Find(&threads).Error
	return threads, err
}

// ClaimThread 核心认领逻辑：单条条件更新保证同一会话至多一位咨询师胜出
// 仅当 counselor_id 仍为 NULL 且会话开启时写入；返回值表示本次调用是否胜出
func (s *threadRepoImpl) ClaimThread(ctx context.Context, threadID, counselorID uint64, claimedAt time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("id = ? AND counselor_id IS NULL AND status = ?", threadID, consts.ThreadStatusOpen).
		Updates(map[string]interface{}{
			"counselor_id":      counselorID,
			"claimed_at":        claimedAt,
			"unassigned_unread": 0,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateIdentityMode 锁定前调整身份模式，条件更新保证锁定后的调整请求不生效
func (s *threadRepoImpl) UpdateIdentityMode(ctx context.Context, threadID uint64, anonymous bool, mode string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("id = ? AND identity_locked = 0", threadID).
		Updates(map[string]interface{}{
			"anonymous":     anonymous,
			"identity_mode": mode,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// LockIdentity 身份单向锁定：仅当尚未锁定时写入，返回本次调用是否完成锁定
func (s *threadRepoImpl) LockIdentity(ctx context.Context, threadID uint64, anonymous bool, mode string, lockedAt time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("id = ? AND identity_locked = 0", threadID).
		Updates(map[string]interface{}{
			"anonymous":          anonymous,
			"identity_mode":      mode,
			"identity_locked":    true,
			"identity_locked_at": lockedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateActivity 消息落库后的计数与预览写回
// 只写活动相关列，绝不回写认领与身份列，避免覆盖并发认领
func (s *threadRepoImpl) UpdateActivity(ctx context.Context, thread *model.Thread) error {
	return s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("id = ?", thread.ID).
		Updates(map[string]interface{}{
			"unread_counts":     thread.UnreadCounts,
			"unassigned_unread": thread.UnassignedUnread,
			"last_message":      thread.LastMessage,
			"last_message_at":   thread.LastMessageAt,
		}).Error
}

// UpdateUnread 已读标记只写未读相关列
func (s *threadRepoImpl) UpdateUnread(ctx context.Context, thread *model.Thread) error {
	return s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("id = ?", thread.ID).
		Updates(map[string]interface{}{
			"unread_counts":     thread.UnreadCounts,
			"unassigned_unread": thread.UnassignedUnread,
		}).Error
}

// CloseThread 关闭写回：状态、关闭元数据与计数清零，释放 open_key
func (s *threadRepoImpl) CloseThread(ctx context.Context, thread *model.Thread) error {
	return s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("id = ?", thread.ID).
		Updates(map[string]interface{}{
			"status":            thread.Status,
			"closed_at":         thread.ClosedAt,
			"closed_by":         thread.ClosedBy,
			"unread_counts":     thread.UnreadCounts,
			"unassigned_unread": thread.UnassignedUnread,
			"open_key":          nil,
		}).Error
}

// CountUnclaimedPending 统计有待处理动态的未认领会话数
func (s *threadRepoImpl) CountUnclaimedPending(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("status = ? AND counselor_id IS NULL AND unassigned_unread > 0", consts.ThreadStatusOpen).
		Count(&count).Error
	return count, err
}
