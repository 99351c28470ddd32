package handlers

import (
	"context"
	"net/http"
	"time"

	"firelater/internal/services"
	"firelater/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 执行日志推送参数
const (
	executionPollInterval = 2 * time.Second
	executionWriteWait    = 10 * time.Second
	executionPingPeriod   = 30 * time.Second
	executionBatchLimit   = 100
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 鉴权由JWT完成，这里放开Origin检查
		return true
	},
}

// ExecutionStreamHandler 执行日志WebSocket推送处理器
type ExecutionStreamHandler struct {
	logService *services.WorkflowExecutionLogService
}

// NewExecutionStreamHandler 创建执行日志推送处理器
func NewExecutionStreamHandler(logService *services.WorkflowExecutionLogService) *ExecutionStreamHandler {
	return &ExecutionStreamHandler{logService: logService}
}

// Stream 建立WebSocket连接并增量推送新产生的执行日志
func (h *ExecutionStreamHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.GetLogger().WithError(err).Error("WebSocket升级失败")
		return
	}
	defer conn.Close()

	entityType := c.Query("entity_type")

	// 从当前最新日志之后开始推送，存量日志走REST查询
	cursor, err := h.logService.LatestExecutedAt(entityType)
	if err != nil {
		logger.GetLogger().WithError(err).Error("查询执行日志游标失败")
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 读协程只用于感知客户端断开
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pollTicker := time.NewTicker(executionPollInterval)
	defer pollTicker.Stop()
	pingTicker := time.NewTicker(executionPingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(executionWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-pollTicker.C:
			logs, err := h.logService.ListAfter(entityType, cursor, executionBatchLimit)
			if err != nil {
				logger.GetLogger().WithError(err).Error("查询增量执行日志失败")
				continue
			}

			for i := range logs {
				conn.SetWriteDeadline(time.Now().Add(executionWriteWait))
				if err := conn.WriteJSON(logs[i]); err != nil {
					return
				}
				cursor = logs[i].ExecutedAt
			}
		}
	}
}
