package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codenames/internal/config"
	"codenames/internal/db"
	httpServer "codenames/internal/http"
	"codenames/internal/logger"
	"codenames/internal/store"
	"codenames/internal/words"
	"codenames/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	pool := loadWords(cfg)
	logger.Info("word pool loaded", "backend", cfg.WordsBackend, "words", len(pool))

	var st store.Store
	switch cfg.StoreBackend {
	case "redis":
		rs, err := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil)
		if err != nil {
			logger.Fatal("could not connect store", "error", err)
		}
		defer rs.Close()
		st = rs
	default:
		st = store.NewMemory(nil)
	}
	logger.Info("store ready", "backend", cfg.StoreBackend)

	hub := ws.NewHub(st, pool, ws.Config{AllowedOrigin: cfg.AllowedOrigin})
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, hub, st, version)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}
	stopHub()

	logger.Info("server exited")
}

func loadWords(cfg *config.Config) []string {
	switch cfg.WordsBackend {
	case "postgres":
		dbPool := db.Connect(cfg.DatabaseURL)
		defer dbPool.Close()
		pool, err := words.LoadPostgres(context.Background(), dbPool)
		if err != nil {
			logger.Fatal("could not load word pool", "error", err)
		}
		return pool
	default:
		pool, err := words.LoadFile(cfg.WordsFile)
		if err != nil {
			logger.Fatal("could not load word pool", "error", err)
		}
		return pool
	}
}
