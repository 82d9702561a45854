package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	Gone                = 410
	InternalServerError = 500
)

var (
	ErrParamInvalid    = errors.New("参数错误")
	ErrTextInvalid     = errors.New("消息内容为空或超出长度限制")
	ErrThreadNotFound  = errors.New("会话不存在")
	ErrThreadClosed    = errors.New("会话已关闭")
	ErrStudentOnly     = errors.New("仅学生可发起咨询会话")
	ErrThreadClaimed   = errors.New("会话已由其他咨询师接待")
	ErrClaimConflict   = errors.New("会话刚刚被其他咨询师认领")
	ErrIdentityLocked  = errors.New("本会话的身份模式已锁定")
	ErrCloseUnclaimed  = errors.New("未认领的会话只能由学生关闭")
	UnauthorizedError  = errors.New("权限不足")
	UnExpectedError    = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:   BadRequest,
	ErrTextInvalid:    BadRequest,
	ErrThreadNotFound: NotFound,
	ErrThreadClosed:   Gone,
	ErrStudentOnly:    Forbidden,
	ErrThreadClaimed:  Forbidden,
	ErrClaimConflict:  Conflict,
	ErrIdentityLocked: Conflict,
	ErrCloseUnclaimed: Forbidden,
	UnauthorizedError: Unauthorized,
	UnExpectedError:   InternalServerError,
}
