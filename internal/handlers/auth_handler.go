package handlers

import (
	"firelater/internal/middleware"
	"firelater/internal/services"
	"firelater/pkg/jwt"
	"firelater/pkg/logger"
	"firelater/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	user, err := h.userService.GetByUsername(req.Username)
	if err != nil {
		response.Unauthorized(c, "用户名或密码错误")
		return
	}
	if !user.CheckPassword(req.Password) {
		response.Unauthorized(c, "用户名或密码错误")
		return
	}
	if !user.IsActive() {
		response.Forbidden(c, "用户已被停用")
		return
	}

	token, err := jwt.GetJWTManager().GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		response.ServerError(c, "生成令牌失败")
		return
	}

	if err := h.userService.UpdateLastLogin(user.ID); err != nil {
		logger.GetLogger().WithError(err).Warnf("记录用户 %d 登录时间失败", user.ID)
	}

	response.Success(c, gin.H{
		"token": token,
		"user":  user,
	})
}

// RefreshTokenRequest 刷新令牌请求
type RefreshTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RefreshToken 刷新令牌
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	token, err := jwt.GetJWTManager().RefreshToken(req.Token)
	if err != nil {
		response.Unauthorized(c, "令牌无效或已过期")
		return
	}

	response.Success(c, gin.H{"token": token})
}

// Me 当前登录用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		response.Unauthorized(c, "未登录")
		return
	}

	user, err := h.userService.GetByID(userID)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	permissions, err := h.userService.GetUserPermissions(userID)
	if err != nil {
		response.ServerError(c, "查询用户权限失败")
		return
	}

	response.Success(c, gin.H{
		"user":        user,
		"permissions": permissions,
	})
}

// Logout 退出登录（JWT无状态，由客户端丢弃令牌）
func (h *AuthHandler) Logout(c *gin.Context) {
	response.SuccessWithMessage(c, "退出成功", nil)
}
