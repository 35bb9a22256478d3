package router

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"order_management/internal/apperr"
	"order_management/internal/config"
	"order_management/internal/middleware"
	"order_management/internal/security"
	"order_management/internal/service"
)

// Setup 注册全部 HTTP 路由。
// rdb 为 nil 时跳过登录限流（测试环境不起 Redis）。
func Setup(
	r *gin.Engine,
	auth *service.AuthService,
	orders *service.OrderService,
	tokens *security.TokenService,
	rdb *rd.Client,
	cfg config.AppConfig,
	logger zerolog.Logger,
) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	authGroup := r.Group("/api/auth")
	{
		// 登录与注册挂 IP 限流，抵御暴力破解
		if rdb != nil {
			limiter := middleware.RedisRateLimit(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow)
			authGroup.POST("/register", limiter, register(auth, logger))
			authGroup.POST("/login", limiter, login(auth, logger))
		} else {
			authGroup.POST("/register", register(auth, logger))
			authGroup.POST("/login", login(auth, logger))
		}
		authGroup.POST("/forgot_password", forgotPassword(auth, logger))
		authGroup.POST("/reset_password", resetPassword(auth, logger))
		authGroup.GET("/me", middleware.JWTAuth(tokens), me(auth, logger))
	}

	orderGroup := r.Group("/api/orders", middleware.JWTAuth(tokens))
	{
		orderGroup.POST("", createOrder(orders, logger))
		orderGroup.GET("", listOrders(orders, logger))
		orderGroup.GET("/:id", getOrder(orders, logger))
		orderGroup.PUT("/:id", updateOrder(orders, logger))
		orderGroup.DELETE("/:id", deleteOrder(orders, logger))

		admin := orderGroup.Group("", middleware.RequireAdmin())
		admin.GET("/admin/all", adminListOrders(orders, logger))
		admin.POST("/:id/approve", approveOrder(orders, logger))
		admin.POST("/:id/reject", rejectOrder(orders, logger))
	}
}

// respondErr 统一把错误分类映射为 HTTP 响应。
// 内部错误只下发通用消息与时间戳，具体原因留在日志里。
func respondErr(c *gin.Context, logger zerolog.Logger, err error) {
	msg := publicMessage(err)
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindBusinessRule:
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": msg})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": msg})
	case apperr.KindAuth:
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": msg})
	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("请求处理失败")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":      500,
			"msg":       "内部服务错误",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// publicMessage 取可以下发的错误消息，未分类错误一律用通用文案。
func publicMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.KindInternal && ae.Kind != apperr.KindTransient {
		return ae.Message
	}
	return "内部服务错误"
}

// pathID 解析并校验路径中的资源 ID。
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "ID 无效"})
		return 0, false
	}
	return uint(id), true
}
