// Package router 装配 API 服务器与 AI 服务的 Gin 路由。
package router

import (
	"time"

	"matesl-go/internal/handler"
	"matesl-go/internal/middleware"
	"matesl-go/internal/service"
	"matesl-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIDeps 是 API 服务器路由需要的全部依赖，由 main 构造。
type APIDeps struct {
	JWT                  *token.JWTManager
	Redis                *redis.Client
	UserService          service.UserService
	SearchService        service.SearchService
	SearchHistoryService *service.SearchHistoryService
	ProcedureService     service.ProcedureService
	ChatService          service.ChatService
	AdminService         service.AdminService
	ChatPerMinute        int
	APIPerMinute         int
	AllowedOrigins       []string
	HealthChecks         map[string]handler.HealthCheck
}

// NewAPIRouter 注册 /api/v1 下的全部路由。
func NewAPIRouter(d APIDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(d.AllowedOrigins), middleware.Metrics())

	authHandler := handler.NewAuthHandler(d.UserService)
	userHandler := handler.NewUserHandler(d.UserService, d.SearchHistoryService)
	procedureHandler := handler.NewProcedureHandler(d.SearchService, d.ProcedureService)
	chatHandler := handler.NewChatHandler(d.ChatService, d.UserService, d.JWT)
	adminHandler := handler.NewAdminHandler(d.AdminService, d.ProcedureService)

	requireAuth := middleware.AuthMiddleware(d.JWT, d.UserService)
	optionalAuth := middleware.OptionalAuth(d.JWT, d.UserService)
	apiLimit := middleware.RateLimit(middleware.NewRateLimiter(d.Redis, "api", int64(d.APIPerMinute), time.Minute))
	chatLimit := middleware.RateLimit(middleware.NewRateLimiter(d.Redis, "chat", int64(d.ChatPerMinute), time.Minute))

	r.GET("/health", handler.Health("api", d.HealthChecks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth", apiLimit)
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", requireAuth, authHandler.Logout)
		}

		// 需要认证的用户路由
		users := apiV1.Group("/users/me", requireAuth, apiLimit)
		{
			users.GET("", userHandler.GetProfile)
			users.PUT("", userHandler.UpdateProfile)
			users.PUT("/password", userHandler.ChangePassword)
			users.GET("/search-history", userHandler.SearchHistory)
		}

		// 流程目录，匿名可访问
		procedures := apiV1.Group("/procedures", optionalAuth, apiLimit)
		{
			procedures.GET("", procedureHandler.List)
			procedures.GET("/search", procedureHandler.Search)
			procedures.GET("/categories", procedureHandler.Categories)
			procedures.GET("/popular", procedureHandler.Popular)
			procedures.GET("/category/:category", procedureHandler.ByCategory)
			procedures.GET("/slug/:slug", procedureHandler.GetBySlug)
			procedures.GET("/:id", procedureHandler.GetByID)
			procedures.GET("/:id/related", procedureHandler.Related)
			procedures.GET("/:id/offices", procedureHandler.Offices)
		}

		// Chat 路由组，匿名用户每条消息都是一个新的无主会话
		chat := apiV1.Group("/chat")
		{
			chat.POST("/message", optionalAuth, chatLimit, chatHandler.SendMessage)
			chat.GET("/sessions", requireAuth, apiLimit, chatHandler.Sessions)
			chat.GET("/sessions/:id/history", requireAuth, apiLimit, chatHandler.History)
			chat.DELETE("/sessions/:id", requireAuth, apiLimit, chatHandler.DeleteSession)
			chat.GET("/export", requireAuth, apiLimit, chatHandler.Export)
			chat.GET("/ws/:token", chatHandler.Handle)
		}

		admin := apiV1.Group("/admin", requireAuth, apiLimit)
		{
			// 流程维护对 CONTENT_MANAGER 开放
			content := admin.Group("/procedures", middleware.ContentManagerMiddleware())
			{
				content.GET("", adminHandler.ListProcedures)
				content.POST("", adminHandler.CreateProcedure)
				content.POST("/reindex", adminHandler.ReindexProcedures)
				content.PUT("/:id", adminHandler.UpdateProcedure)
				content.PUT("/:id/status", adminHandler.UpdateProcedureStatus)
			}

			// 其余管理路由只对管理员开放
			ops := admin.Group("", middleware.AdminAuthMiddleware())
			{
				ops.GET("/dashboard", adminHandler.Dashboard)
				ops.GET("/users", adminHandler.ListUsers)
				ops.PUT("/users/:id/role", adminHandler.UpdateUserRole)
				ops.GET("/conversations", adminHandler.ListConversations)
				ops.DELETE("/cache", adminHandler.ClearCache)
				ops.GET("/models/status", adminHandler.ModelStatus)
			}
		}
	}
	return r
}

// NewAIRouter 注册 AI 服务的路由。该服务只在内网被 API 服务器调用。
func NewAIRouter(aiService service.AIService, checks map[string]handler.HealthCheck) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.Metrics())

	aiHandler := handler.NewAIHandler(aiService)
	r.POST("/chat/process", aiHandler.Process)
	r.GET("/models/status", aiHandler.ModelStatus)
	r.DELETE("/cache", aiHandler.ClearCache)
	r.GET("/health", handler.Health("ai", checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
