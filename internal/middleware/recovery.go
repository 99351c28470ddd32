package middleware

import (
	"firelater/pkg/logger"
	"firelater/pkg/response"

	"github.com/gin-gonic/gin"
)

// Recovery panic恢复中间件，记录日志并返回统一错误格式
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.GetLogger().WithFields(map[string]interface{}{
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
					"panic":  err,
				}).Error("请求处理panic")

				response.ServerError(c, "服务器内部错误")
				c.Abort()
			}
		}()
		c.Next()
	}
}
