// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"neomate-go/internal/config"
	"neomate-go/internal/handler"
	"neomate-go/internal/middleware"
	"neomate-go/internal/model"
	"neomate-go/internal/repository"
	"neomate-go/internal/service"
	"neomate-go/pkg/database"
	"neomate-go/pkg/llm"
	"neomate-go/pkg/log"
	"neomate-go/pkg/mailer"
	"neomate-go/pkg/token"
	"neomate-go/pkg/voice"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf
	caps := cfg.ResolveCapabilities()

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Infow("能力开关", "ai", caps.AIEnabled, "voice", caps.VoiceEnabled, "mail", caps.MailEnabled)

	// 3. 初始化数据库和 Redis
	database.InitPostgres(cfg.Database.Postgres.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err := database.DB.AutoMigrate(&model.User{}, &model.Profile{}, &model.Conversation{}, &model.Message{}); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	profileRepo := repository.NewProfileRepository(database.DB)
	convRepo := repository.NewConversationRepository(database.DB)
	msgRepo := repository.NewMessageRepository(database.DB)
	tokenStore := repository.NewTokenStore(database.RDB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	llmClient := llm.NewClient(cfg.LLM, caps.AIEnabled)
	voiceClient := voice.NewClient(cfg.Voice)
	mailSender := mailer.New(cfg.Mail)
	authService := service.NewAuthService(userRepo, profileRepo, tokenStore, jwtManager, mailSender, caps.MailEnabled)
	convService := service.NewConversationService(convRepo, msgRepo)
	chatService := service.NewChatService(convRepo, msgRepo, llmClient)

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS())

	// 7. 注册路由
	authHandler := handler.NewAuthHandler(authService)
	convHandler := handler.NewConversationHandler(convService)
	chatHandler := handler.NewChatHandler(chatService)
	voiceHandler := handler.NewVoiceHandler(voiceClient, cfg.Voice, caps)
	capHandler := handler.NewCapabilityHandler(caps)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/capabilities", capHandler.Get)

		// 无需认证的认证入口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/confirm", authHandler.Confirm)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
		}

		// 需要认证的路由
		authed := apiV1.Group("/")
		authed.Use(middleware.AuthMiddleware(jwtManager, tokenStore))
		{
			authed.GET("/auth/session", authHandler.Session)
			authed.POST("/auth/logout", authHandler.Logout)
			authed.PATCH("/profile", authHandler.UpdateProfile)

			authed.GET("/conversations", convHandler.List)
			authed.POST("/conversations", convHandler.Create)
			authed.PATCH("/conversations/:id", convHandler.Rename)
			authed.DELETE("/conversations/:id", convHandler.Delete)
			authed.GET("/conversations/:id/messages", convHandler.Messages)
			authed.POST("/conversations/:id/messages", chatHandler.SendMessage)

			authed.GET("/voice/signed-url", voiceHandler.SignedURL)
			authed.GET("/voice/bridge", voiceHandler.Bridge)
		}
	}

	// 8. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
