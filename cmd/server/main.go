// Package main runs the live-stream coordinator HTTP server with WebSocket
// and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	webrtc "github.com/pion/webrtc/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shoplive/backend/config"
	"github.com/shoplive/backend/internal/auth"
	"github.com/shoplive/backend/internal/chat"
	"github.com/shoplive/backend/internal/middleware"
	"github.com/shoplive/backend/internal/realtime"
	"github.com/shoplive/backend/internal/streams"
	"github.com/shoplive/backend/pkg/database"
	"github.com/shoplive/backend/pkg/redis"
	"github.com/shoplive/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is the optional cross-instance broadcast backplane; without it
	// the coordinator runs single-instance, which is the supported mode for
	// presence and lifecycle writes.
	var backplane *realtime.RedisBackplane
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		backplane = realtime.NewRedisBackplane(rdb.Client, logger)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	var hub *realtime.Hub
	if backplane != nil {
		hub = realtime.NewHub(logger, backplane, backplane)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	streamRepo := streams.NewRepository(pool)
	chatRepo := chat.NewRepository(pool)
	coordinator := realtime.NewCoordinator(hub, streamRepo, chatRepo, logger)

	streamHandler := streams.NewHandler(streamRepo, logger)
	chatHandler := chat.NewHandler(chatRepo, logger)

	iceServers := make([]webrtc.ICEServer, 0, len(cfg.WebRTC.ICEUrls))
	for _, u := range cfg.WebRTC.ICEUrls {
		if u != "" {
			iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{u}})
		}
	}

	validate := func(token string) (userID, username, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", "", err
		}
		return claims.UserID, claims.Username, claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/webrtc/config", realtime.ICEConfigHandler(iceServers))

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/streams", middleware.RequireRole("streamer", "admin"), streamHandler.Create)
		api.GET("/streams/live", streamHandler.ListLive)
		api.GET("/streams/:id", streamHandler.GetByID)
		api.GET("/streams/:id/stats", streamHandler.Stats)
		api.GET("/streams/:id/audience_count", streamHandler.AudienceCount(hub))
		api.GET("/streams/:id/messages", chatHandler.History)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(coordinator, logger, validate, cfg.Realtime))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
