package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"order_management/internal/middleware"
	"order_management/internal/service"
)

// register 注册账户，成功后直接返回令牌（注册即登录）。
func register(auth *service.AuthService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		result, err := auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"code": 0, "data": result})
	}
}

// login 登录换取令牌。
func login(auth *service.AuthService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		result, err := auth.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": result})
	}
}

// forgotPassword 发起密码找回，响应不暴露邮箱是否注册。
func forgotPassword(auth *service.AuthService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email" binding:"required,email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		msg, err := auth.ForgotPassword(c.Request.Context(), req.Email)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": msg})
	}
}

// resetPassword 用重置令牌设置新密码。
func resetPassword(auth *service.AuthService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Token           string `json:"token" binding:"required"`
			NewPassword     string `json:"new_password" binding:"required"`
			ConfirmPassword string `json:"confirm_password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		msg, err := auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword, req.ConfirmPassword)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": msg})
	}
}

// me 返回当前令牌对应的账户摘要。
func me(auth *service.AuthService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.GetUser(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": user})
	}
}
