package handlers

import (
	"net/http"
	"strings"
	"time"

	"anycastweb/middleware"
	"anycastweb/models"
	"anycastweb/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Register 用户注册
// @Summary 用户注册
// @Description 注册新账号并初始化免费套餐
// @Tags 认证
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "注册成功"
// @Failure 409 {object} map[string]interface{} "邮箱已注册"
// @Router /api/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "参数错误: " + err.Error(),
		})
		return
	}

	var count int64
	h.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"code": 409,
			"msg":  "邮箱已注册",
		})
		return
	}

	user := models.User{Email: req.Email, Role: models.RoleOwner}
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "注册失败",
		})
		return
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		subscription := models.Subscription{
			UserID: user.ID,
			Plan:   "free",
			Limits: map[string]any{"entry_points": 3, "routes": 5},
		}
		if err := tx.Create(&subscription).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditLog{
			UserID:    user.ID,
			Action:    "register",
			Details:   map[string]any{"email": user.Email},
			IPAddress: c.ClientIP(),
			Timestamp: time.Now(),
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "注册失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "注册成功",
		"data": user,
	})
}

// Login 用户登录
// @Summary 用户登录
// @Description 校验邮箱密码，签发访问令牌和刷新令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "登录成功"
// @Failure 401 {object} map[string]interface{} "邮箱或密码错误"
// @Router /api/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "请填写完整信息",
		})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code": 401,
			"msg":  "邮箱或密码错误",
		})
		return
	}
	if !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code": 401,
			"msg":  "邮箱或密码错误",
		})
		return
	}

	access, refresh, err := middleware.GenerateTokens(&h.cfg.JWT, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "登录失败",
		})
		return
	}
	h.audit(c, user.ID, "login", map[string]any{"success": true})

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "登录成功",
		"data": gin.H{
			"access_token":  access,
			"refresh_token": refresh,
			"token_type":    "bearer",
		},
	})
}

// Refresh 刷新令牌
// @Summary 刷新令牌
// @Description 用刷新令牌换取新的令牌对
// @Tags 认证
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "刷新成功"
// @Failure 401 {object} map[string]interface{} "刷新令牌无效"
// @Router /api/auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "参数错误",
		})
		return
	}

	userID, err := middleware.ParseToken(&h.cfg.JWT, req.RefreshToken, middleware.TokenRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code": 401,
			"msg":  "刷新令牌无效或已过期",
		})
		return
	}
	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code": 401,
			"msg":  "用户不存在",
		})
		return
	}

	access, refresh, err := middleware.GenerateTokens(&h.cfg.JWT, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "令牌签发失败",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{
			"access_token":  access,
			"refresh_token": refresh,
			"token_type":    "bearer",
		},
	})
}

// ForgotPassword 忘记密码
// @Summary 忘记密码
// @Description 账号存在时生成一小时有效的重置令牌并投递邮件任务，应答不区分账号是否存在
// @Tags 认证
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "已受理"
// @Router /api/auth/forgot-password [post]
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "参数错误",
		})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err == nil {
		token := strings.ReplaceAll(uuid.NewString(), "-", "")
		reset := models.PasswordResetToken{
			UserID:    user.ID,
			Token:     token,
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := h.db.Create(&reset).Error; err == nil {
			h.queue.Submit(services.ResetMailJob{Email: user.Email, Token: token})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "如果账号存在，重置邮件已发送",
	})
}

// ResetPassword 重置密码
// @Summary 重置密码
// @Description 校验重置令牌并更新密码
// @Tags 认证
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "重置成功"
// @Failure 400 {object} map[string]interface{} "令牌无效或已过期"
// @Router /api/auth/reset-password [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "参数错误: " + err.Error(),
		})
		return
	}

	var token models.PasswordResetToken
	if err := h.db.Where("token = ?", req.Token).First(&token).Error; err != nil ||
		token.ExpiresAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "重置令牌无效或已过期",
		})
		return
	}
	var user models.User
	if err := h.db.First(&user, token.UserID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code": 404,
			"msg":  "用户不存在",
		})
		return
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "密码更新失败",
		})
		return
	}
	h.db.Save(&user)
	h.db.Delete(&token)
	h.audit(c, user.ID, "reset_password", map[string]any{})

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "密码已更新",
	})
}

// Logout 退出登录
// @Summary 退出登录
// @Description 令牌由客户端自行丢弃，服务端仅记录审计日志
// @Tags 认证
// @Produce json
// @Success 200 {object} map[string]interface{} "已退出"
// @Router /api/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	user := middleware.CurrentUser(c)
	h.audit(c, user.ID, "logout", map[string]any{})
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "已退出登录",
	})
}
