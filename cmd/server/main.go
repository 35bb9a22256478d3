package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	rd "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"order_management/internal/config"
	"order_management/internal/model"
	"order_management/internal/router"
	"order_management/internal/security"
	"order_management/internal/service"
)

func main() {
	// .env 仅本地开发使用，不存在时静默跳过
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("配置加载失败")
	}

	// 连接 SQLite，自动建表
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("打开数据库失败")
	}
	if err := db.AutoMigrate(&model.User{}, &model.Order{}, &model.OrderItem{}); err != nil {
		logger.Fatal().Err(err).Msg("数据库迁移失败")
	}

	rdb := rd.NewClient(&rd.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	tokens := security.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
	authSvc := service.NewAuthService(db, hasher, tokens, logger)
	orderSvc := service.NewOrderService(db, logger)

	r := gin.Default()
	router.Setup(r, authSvc, orderSvc, tokens, rdb, cfg, logger)

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("服务启动")
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Fatal().Err(err).Msg("服务退出")
	}
}
