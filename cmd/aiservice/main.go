// Package main 是 AI 服务的入口点。它编排 OpenAI 与 HuggingFace 两个提供方，
// 并用 Redis 缓存成功的回答。
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
	"matesl-go/internal/provider"
	"matesl-go/internal/repository"
	"matesl-go/internal/router"
	"matesl-go/internal/service"
	"matesl-go/pkg/database"
	"matesl-go/pkg/huggingface"
	"matesl-go/pkg/log"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./configs/config.yaml"
	}
	cfg := config.Init(path)

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	ctx := context.Background()

	// 3. 初始化数据库和 Redis；流程目录用于给模型提供上下文
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("数据库初始化失败", err)
	}
	rdb, err := database.NewRedis(ctx, cfg.Database.Redis)
	if err != nil {
		log.Fatal("Redis 初始化失败", err)
	}
	defer rdb.Close()

	// 4. 初始化提供方：OpenAI 为主，HuggingFace 兜底
	catalog := service.NewSearchService(repository.NewProcedureRepository(db), nil, nil)
	openAI := provider.NewOpenAI(cfg.OpenAI, catalog)
	hf := provider.NewHuggingFace(huggingface.NewClient(cfg.HuggingFace), catalog, cfg.HuggingFace)
	for _, p := range []provider.Provider{openAI, hf} {
		s := provider.Status(p)
		log.Infof("[AIService] 模型 %s (%s): %s", s.Name, s.Provider, s.Status)
	}
	aiService := service.NewAIService(openAI, hf, repository.NewAICacheRepository(rdb), cfg.Cache.TTL)

	// 5. 注册路由并启动
	gin.SetMode(cfg.Server.Mode)
	r := router.NewAIRouter(aiService, map[string]handler.HealthCheck{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.AIService.Port),
		Handler: r,
	}
	go func() {
		log.Infof("AI 服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭 AI 服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("AI 服务已优雅关闭")
}
