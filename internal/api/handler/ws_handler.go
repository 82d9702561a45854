package handler

import (
	"Haven/internal/api/dto"
	"Haven/internal/pkg/consts"
	"Haven/internal/pkg/redis"
	"Haven/internal/pkg/response"
	"Haven/internal/pkg/security"
	"Haven/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	threadService service.ThreadService
}

func NewWsHandler(threadService service.ThreadService) *WsHandler {
	return &WsHandler{threadService: threadService}
}

// Connect 建立实时连接
// 握手即鉴权；自动加入个人频道、角色频道（咨询师）与参与中的会话频道
func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}

	// 升级 Websocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	// 组装初始订阅频道
	channels := []string{service.UserChannel(claims.UserID)}
	if claims.Role == consts.RoleCounselor {
		channels = append(channels, consts.CounselRoleCounselorKey)
	}

	threadIDs, err := s.threadService.ListParticipantThreadIDs(context.Background(), claims)
	if err != nil {
		log.Error("获取参与会话失败", "userID", claims.UserID, "err", err)
		return
	}
	for _, id := range threadIDs {
		channels = append(channels, service.ThreadChannel(id))
	}

	// 订阅 Redis 总线
	pubsub := redis.Subscribe(context.Background(), channels...)
	defer func() {
		_ = pubsub.Close()
	}()

	log.Info("用户 WS 连接已建立", "userID", claims.UserID, "role", claims.Role, "channels", len(channels))

	stopChan := make(chan struct{})

	// 读循环：处理 thread:join 请求并监听客户端断开
	go func() {
		defer close(stopChan)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var req dto.JoinReq
			if err := json.Unmarshal(data, &req); err != nil || req.Type != dto.EventThreadJoin {
				continue
			}

			// 加入前重跑可见性规则，未授权的请求静默忽略
			if !s.threadService.CanJoinThread(context.Background(), claims, req.ThreadID) {
				log.Warn("WS 加入会话频道被拒绝", "userID", claims.UserID, "thread_id", req.ThreadID)
				continue
			}
			if err := pubsub.Subscribe(context.Background(), service.ThreadChannel(req.ThreadID)); err != nil {
				log.Error("WS 增订频道失败", "userID", claims.UserID, "thread_id", req.ThreadID, "err", err)
			}
		}
	}()

	// 写循环：监听 Redis 并推送至客户端
	redisCh := pubsub.Channel()
	for {
		select {
		case msg := <-redisCh:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Error("WS 推送失败", "userID", claims.UserID, "err", err)
				return
			}
		case <-stopChan:
			log.Info("用户 WS 连接已断开", "userID", claims.UserID)
			return
		}
	}
}
