package handler

import (
	"Haven/internal/api/dto"
	"Haven/internal/pkg/response"
	"Haven/internal/pkg/security"
	"Haven/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ThreadHandler struct {
	threadService service.ThreadService
}

func NewThreadHandler(threadService service.ThreadService) *ThreadHandler {
	return &ThreadHandler{threadService: threadService}
}

// viewerFromContext 取出中间件注入的调用者身份
func viewerFromContext(c *gin.Context) *security.UserClaims {
	return &security.UserClaims{
		UserID: c.GetUint64("user_id"),
		Role:   c.GetString("role"),
	}
}

// OpenThread 开启（或复用）咨询会话接口，学生端
func (s *ThreadHandler) OpenThread(c *gin.Context) {
	var req dto.OpenThreadReq
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.threadService.EnsureOpenThread(c, viewerFromContext(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ListThreads 会话列表接口
func (s *ThreadHandler) ListThreads(c *gin.Context) {
	withMessages := c.Query("withMessages") == "1"
	msgLimit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	res, err := s.threadService.ListThreads(c, viewerFromContext(c), withMessages, msgLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetThread 会话详情接口
func (s *ThreadHandler) GetThread(c *gin.Context) {
	threadID, err := strconv.ParseUint(c.Param("thread_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.threadService.GetThread(c, viewerFromContext(c), threadID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SendMessage 发送消息接口
func (s *ThreadHandler) SendMessage(c *gin.Context) {
	threadID, err := strconv.ParseUint(c.Param("thread_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.threadService.SendMessage(c, viewerFromContext(c), threadID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetHistory 获取历史消息接口
func (s *ThreadHandler) GetHistory(c *gin.Context) {
	threadID, err := strconv.ParseUint(c.Param("thread_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	beforeID := c.Query("beforeId")
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	res, err := s.threadService.GetHistory(c, viewerFromContext(c), threadID, beforeID, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkRead 标记已读接口
func (s *ThreadHandler) MarkRead(c *gin.Context) {
	threadID, err := strconv.ParseUint(c.Param("thread_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.threadService.MarkRead(c, viewerFromContext(c), threadID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// CloseThread 关闭会话接口
func (s *ThreadHandler) CloseThread(c *gin.Context) {
	threadID, err := strconv.ParseUint(c.Param("thread_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.threadService.CloseThread(c, viewerFromContext(c), threadID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
