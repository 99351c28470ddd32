package middleware

import (
	"strings"

	"firelater/internal/services"
	"firelater/pkg/jwt"
	"firelater/pkg/response"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextKeyClaims   = "claims"
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
	ContextKeyIsAdmin  = "is_admin"
)

// RequireLogin 登录认证中间件
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "缺少认证令牌")
			c.Abort()
			return
		}

		// 格式: Bearer <token>
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "认证令牌格式错误")
			c.Abort()
			return
		}

		claims, err := jwt.GetJWTManager().VerifyToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "认证令牌无效或已过期")
			c.Abort()
			return
		}

		// 校验用户仍然有效（被停用的用户立即失去访问权）
		user, err := services.NewUserService().GetByID(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "用户不存在")
			c.Abort()
			return
		}
		if !user.IsActive() {
			response.Forbidden(c, "用户已被停用")
			c.Abort()
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUsername, claims.Username)
		c.Set(ContextKeyIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// RequirePermission 权限校验中间件（须在RequireLogin之后）
func RequirePermission(permissionCode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(ContextKeyUserID)
		if !exists {
			response.Unauthorized(c, "未登录")
			c.Abort()
			return
		}

		allowed, err := services.NewUserService().HasPermission(userID.(uint), permissionCode)
		if err != nil {
			response.ServerError(c, "权限校验失败")
			c.Abort()
			return
		}
		if !allowed {
			response.Forbidden(c, "没有操作权限: "+permissionCode)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin 管理员校验中间件（须在RequireLogin之后）
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, exists := c.Get(ContextKeyIsAdmin)
		if !exists || !isAdmin.(bool) {
			response.Forbidden(c, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetClaims 从上下文取出JWT声明
func GetClaims(c *gin.Context) *jwt.JWTClaims {
	value, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := value.(*jwt.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetUserID 从上下文取出用户ID，未登录返回0
func GetUserID(c *gin.Context) uint {
	value, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0
	}
	userID, ok := value.(uint)
	if !ok {
		return 0
	}
	return userID
}
