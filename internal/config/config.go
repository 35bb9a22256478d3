package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const minJWTSecretLen = 32

// AppConfig 聚合运行时配置，尽量通过环境变量注入，避免硬编码。
type AppConfig struct {
	HTTPAddr string
	DBPath   string

	// JWT 签发参数
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	TokenTTL    time.Duration

	// bcrypt 工作因子
	BcryptCost int

	RedisAddr string
	RedisDB   int

	// 登录/注册接口限流
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// Load 读取并校验配置，缺失时使用默认值。
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DBPath:          getEnv("DB_PATH", "order_management.db"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "order-management-api"),
		JWTAudience:     getEnv("JWT_AUDIENCE", "order-management-client"),
		TokenTTL:        60 * time.Minute,
		BcryptCost:      12,
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         0,
		LoginRateLimit:  20,
		LoginRateWindow: time.Minute,
	}

	if len(cfg.JWTSecret) < minJWTSecretLen {
		return AppConfig{}, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLen)
	}

	ttlMin, err := getEnvInt("TOKEN_TTL_MIN", int(cfg.TokenTTL.Minutes()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid TOKEN_TTL_MIN: %w", err)
	}
	if ttlMin <= 0 {
		return AppConfig{}, fmt.Errorf("TOKEN_TTL_MIN must be > 0")
	}
	cfg.TokenTTL = time.Duration(ttlMin) * time.Minute

	cost, err := getEnvInt("BCRYPT_COST", cfg.BcryptCost)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	cfg.BcryptCost = cost

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	rateLimit, err := getEnvInt("LOGIN_RATE_LIMIT", cfg.LoginRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid LOGIN_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("LOGIN_RATE_LIMIT must be > 0")
	}
	cfg.LoginRateLimit = rateLimit

	rateWindowSec, err := getEnvInt("LOGIN_RATE_WINDOW_SEC", int(cfg.LoginRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid LOGIN_RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("LOGIN_RATE_WINDOW_SEC must be > 0")
	}
	cfg.LoginRateWindow = time.Duration(rateWindowSec) * time.Second

	return cfg, nil
}

// getEnv 读取字符串环境变量，若为空则返回默认值。
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt 读取整数环境变量，若为空则返回默认值。
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
