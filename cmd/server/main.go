// Package main 是 API 服务器的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matesl-go/internal/config"
	"matesl-go/internal/handler"
	"matesl-go/internal/repository"
	"matesl-go/internal/router"
	"matesl-go/internal/service"
	"matesl-go/pkg/aiclient"
	"matesl-go/pkg/database"
	"matesl-go/pkg/es"
	"matesl-go/pkg/kafka"
	"matesl-go/pkg/log"
	"matesl-go/pkg/storage"
	"matesl-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./configs/config.yaml"
}

func main() {
	// 1. 初始化配置
	cfg := config.Init(configPath())

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. 初始化数据库和 Redis
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("数据库初始化失败", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("数据库迁移失败", err)
	}
	rdb, err := database.NewRedis(ctx, cfg.Database.Redis)
	if err != nil {
		log.Fatal("Redis 初始化失败", err)
	}
	defer rdb.Close()

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	procedureRepo := repository.NewProcedureRepository(db)
	chatRepo := repository.NewChatRepository(db)
	historyRepo := repository.NewSearchHistoryRepository(db)

	// 5. 可选组件：Elasticsearch 检索、MinIO 导出归档、Kafka 检索记录
	var index repository.ProcedureIndex
	if cfg.Search.Backend == "elasticsearch" {
		esClient, err := es.NewClient(ctx, cfg.Elasticsearch)
		if err != nil {
			log.Fatal("Elasticsearch 初始化失败", err)
		}
		index = repository.NewProcedureIndex(esClient, cfg.Elasticsearch.IndexName)
		log.Infof("检索后端: elasticsearch, 索引 %s", cfg.Elasticsearch.IndexName)
	}

	var archive service.ExportArchive
	if cfg.MinIO.Enabled {
		a, err := storage.NewArchive(ctx, cfg.MinIO)
		if err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
		archive = a
	}

	historyService := service.NewSearchHistoryService(historyRepo)
	var publisher service.SearchEventPublisher = historyService
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = producer
		go kafka.StartConsumer(ctx, cfg.Kafka, historyService, rdb)
	}

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	aiClient := aiclient.New(cfg.AIService.BaseURL, cfg.AIService.Timeout)
	userService := service.NewUserService(userRepo, jwtManager, rdb)
	searchService := service.NewSearchService(procedureRepo, index, publisher)
	procedureService := service.NewProcedureService(procedureRepo, index)
	chatService := service.NewChatService(chatRepo, procedureRepo, aiClient, archive)
	adminService := service.NewAdminService(userRepo, procedureRepo, chatRepo, aiClient)

	// 7. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := router.NewAPIRouter(router.APIDeps{
		JWT:                  jwtManager,
		Redis:                rdb,
		UserService:          userService,
		SearchService:        searchService,
		SearchHistoryService: historyService,
		ProcedureService:     procedureService,
		ChatService:          chatService,
		AdminService:         adminService,
		ChatPerMinute:        cfg.RateLimit.ChatPerMinute,
		APIPerMinute:         cfg.RateLimit.APIPerMinute,
		AllowedOrigins:       cfg.CORS.AllowedOrigins,
		HealthChecks: map[string]handler.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	// 8. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 停止 Kafka 消费者
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
