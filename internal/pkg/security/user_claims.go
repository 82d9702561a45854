package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	JWTSecret         string = "Haven"
	JWTExpirationTime        = time.Hour * 24
)

// UserClaims Token 中携带的业务身份：用户 ID 与角色
// 签发由上游身份系统负责，本服务只做校验
type UserClaims struct {
	UserID uint64 `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
