package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firelater/internal/database"
	"firelater/internal/router"
	"firelater/internal/services"
	"firelater/internal/workflow"
	"firelater/pkg/config"
	"firelater/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.GetConfig()

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	appLogger := logger.GetLogger()

	gin.SetMode(cfg.Server.Mode)

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		appLogger.Fatalf("数据库迁移失败: %v", err)
	}

	db := database.GetDB()
	if err := Seed(db); err != nil {
		appLogger.Fatalf("初始化种子数据失败: %v", err)
	}

	// Redis通知队列（不可用时通知动作会失败，但不阻止启动）
	redisQueue := database.GetRedisQueue()
	if err := redisQueue.Ping(); err != nil {
		appLogger.WithError(err).Warn("Redis连接失败，通知类动作将不可用")
	}
	defer database.CloseRedisQueue()

	// 装配规则引擎
	registry := workflow.NewFieldRegistry()
	ticketService := services.NewTicketService(db)
	notificationService := services.NewNotificationService(redisQueue)
	evaluator := workflow.NewConditionEvaluator(registry)
	dispatcher := workflow.NewActionDispatcher(ticketService, notificationService)
	engine := workflow.NewEngine(db, evaluator, dispatcher,
		time.Duration(cfg.Workflow.ActionTimeoutSeconds)*time.Second)
	ticketService.SetEngine(engine)

	// 定时规则调度器
	scheduler := workflow.NewScheduler(db, engine)
	workflow.SetGlobalScheduler(scheduler)
	if err := scheduler.Start(); err != nil {
		appLogger.Fatalf("启动定时调度器失败: %v", err)
	}
	defer scheduler.Stop()

	ruleService := services.NewWorkflowRuleService(db, registry)
	logService := services.NewWorkflowExecutionLogService(db)
	assetService := services.NewAssetService(db)
	cloudResourceService := services.NewCloudResourceService(db)

	// 启动HTTP服务
	r := router.Setup(ticketService, ruleService, logService, assetService, cloudResourceService, registry)
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		appLogger.Infof("服务启动，监听端口 %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("收到退出信号，开始关闭服务")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("服务关闭异常: %v", err)
	}

	appLogger.Info("服务已退出")
}
