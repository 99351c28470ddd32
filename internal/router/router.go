package router

import (
	"firelater/internal/handlers"
	"firelater/internal/middleware"
	"firelater/internal/services"
	"firelater/internal/workflow"
	"firelater/pkg/response"

	"github.com/gin-gonic/gin"
)

// Setup 装配路由
//
// 工单、规则等与引擎相关的服务在main中完成装配后传入，
// 用户、角色等独立服务在此就地创建。
func Setup(
	ticketService *services.TicketService,
	ruleService *services.WorkflowRuleService,
	logService *services.WorkflowExecutionLogService,
	assetService *services.AssetService,
	cloudResourceService *services.CloudResourceService,
	registry *workflow.FieldRegistry,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.SetupCORS())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	userService := services.NewUserService()
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	roleHandler := handlers.NewRoleHandler(services.NewRoleService())
	permissionHandler := handlers.NewPermissionHandler(services.NewPermissionService())
	ticketHandler := handlers.NewTicketHandler(ticketService)
	assetHandler := handlers.NewAssetHandler(assetService)
	cloudResourceHandler := handlers.NewCloudResourceHandler(cloudResourceService)
	ruleHandler := handlers.NewWorkflowRuleHandler(ruleService, logService, registry)
	streamHandler := handlers.NewExecutionStreamHandler(logService)

	v1 := r.Group("/api/v1")

	// 认证
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
		auth.GET("/me", middleware.RequireLogin(), authHandler.Me)
		auth.POST("/logout", middleware.RequireLogin(), authHandler.Logout)
	}

	authed := v1.Group("")
	authed.Use(middleware.RequireLogin())

	// 用户管理
	users := authed.Group("/users")
	{
		users.GET("", middleware.RequirePermission("user:list"), userHandler.List)
		users.POST("", middleware.RequirePermission("user:create"), userHandler.Create)
		users.GET("/:id", middleware.RequirePermission("user:read"), userHandler.Get)
		users.PUT("/:id", middleware.RequirePermission("user:update"), userHandler.Update)
		users.DELETE("/:id", middleware.RequirePermission("user:delete"), userHandler.Delete)
		users.PUT("/:id/status", middleware.RequirePermission("user:update"), userHandler.SetStatus)
		users.PUT("/:id/password", middleware.RequirePermission("user:update"), userHandler.ResetPassword)
		users.PUT("/:id/roles", middleware.RequirePermission("user:update"), userHandler.AssignRoles)
	}

	// 角色与权限
	roles := authed.Group("/roles")
	{
		roles.GET("", middleware.RequirePermission("role:list"), roleHandler.List)
		roles.POST("", middleware.RequirePermission("role:create"), roleHandler.Create)
		roles.GET("/:id", middleware.RequirePermission("role:read"), roleHandler.Get)
		roles.PUT("/:id", middleware.RequirePermission("role:update"), roleHandler.Update)
		roles.DELETE("/:id", middleware.RequirePermission("role:delete"), roleHandler.Delete)
		roles.PUT("/:id/permissions", middleware.RequirePermission("role:update"), roleHandler.AssignPermissions)
	}
	authed.GET("/permissions", middleware.RequirePermission("role:read"), permissionHandler.List)

	// 工单
	tickets := authed.Group("/tickets")
	{
		tickets.GET("", middleware.RequirePermission("ticket:list"), ticketHandler.List)
		tickets.POST("", middleware.RequirePermission("ticket:create"), ticketHandler.Create)
		tickets.GET("/:id", middleware.RequirePermission("ticket:read"), ticketHandler.Get)
		tickets.PUT("/:id", middleware.RequirePermission("ticket:update"), ticketHandler.Update)
		tickets.DELETE("/:id", middleware.RequirePermission("ticket:delete"), ticketHandler.Delete)
		tickets.PUT("/:id/status", middleware.RequirePermission("ticket:update"), ticketHandler.UpdateStatus)
		tickets.PUT("/:id/assign", middleware.RequirePermission("ticket:update"), ticketHandler.Assign)
		tickets.GET("/:id/comments", middleware.RequirePermission("ticket:read"), ticketHandler.ListComments)
		tickets.POST("/:id/comments", middleware.RequirePermission("ticket:update"), ticketHandler.AddComment)
		tickets.GET("/:id/tasks", middleware.RequirePermission("ticket:read"), ticketHandler.ListTasks)
	}

	// 资产
	assets := authed.Group("/assets")
	{
		assets.GET("", middleware.RequirePermission("asset:list"), assetHandler.List)
		assets.POST("", middleware.RequirePermission("asset:create"), assetHandler.Create)
		assets.GET("/:id", middleware.RequirePermission("asset:read"), assetHandler.Get)
		assets.PUT("/:id", middleware.RequirePermission("asset:update"), assetHandler.Update)
		assets.DELETE("/:id", middleware.RequirePermission("asset:delete"), assetHandler.Delete)
	}

	// 云资源
	cloudResources := authed.Group("/cloud-resources")
	{
		cloudResources.GET("", middleware.RequirePermission("cloud_resource:list"), cloudResourceHandler.List)
		cloudResources.POST("", middleware.RequirePermission("cloud_resource:create"), cloudResourceHandler.Create)
		cloudResources.GET("/:id", middleware.RequirePermission("cloud_resource:read"), cloudResourceHandler.Get)
		cloudResources.PUT("/:id", middleware.RequirePermission("cloud_resource:update"), cloudResourceHandler.Update)
		cloudResources.DELETE("/:id", middleware.RequirePermission("cloud_resource:delete"), cloudResourceHandler.Delete)
	}

	// 工作流自动化
	workflowGroup := authed.Group("/workflow")
	{
		rules := workflowGroup.Group("/rules")
		{
			rules.GET("", middleware.RequirePermission("workflow:list"), ruleHandler.List)
			rules.POST("", middleware.RequirePermission("workflow:create"), ruleHandler.Create)
			rules.GET("/:id", middleware.RequirePermission("workflow:read"), ruleHandler.Get)
			rules.PUT("/:id", middleware.RequirePermission("workflow:update"), ruleHandler.Update)
			rules.DELETE("/:id", middleware.RequirePermission("workflow:delete"), ruleHandler.Delete)
			rules.PUT("/:id/enable", middleware.RequirePermission("workflow:update"), ruleHandler.Enable)
			rules.PUT("/:id/disable", middleware.RequirePermission("workflow:update"), ruleHandler.Disable)
		}

		workflowGroup.GET("/fields", middleware.RequirePermission("workflow:read"), ruleHandler.GetFields)
		workflowGroup.GET("/executions", middleware.RequirePermission("workflow:read"), ruleHandler.ListExecutions)
		workflowGroup.GET("/executions/stream", middleware.RequirePermission("workflow:read"), streamHandler.Stream)
	}

	return r
}
