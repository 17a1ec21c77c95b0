package handlers

import (
	"net/http"
	"strings"

	"anycastweb/middleware"
	"anycastweb/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetProfile 获取个人信息
// @Summary 获取个人信息
// @Tags 设置
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回个人信息"
// @Router /api/settings/profile [get]
func (h *Handler) GetProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{
			"email":    user.Email,
			"name":     user.Name,
			"role":     user.Role,
			"timezone": user.Timezone,
		},
	})
}

// UpdateProfile 更新个人信息
// @Summary 更新个人信息
// @Tags 设置
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "更新成功"
// @Router /api/settings/profile [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req struct {
		Name     *string `json:"name"`
		Timezone *string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "参数错误: " + err.Error(),
		})
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Timezone != nil {
		updates["timezone"] = *req.Timezone
	}
	if len(updates) > 0 {
		if err := h.db.Model(user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code": 500,
				"msg":  "更新失败",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "更新成功",
		"data": gin.H{
			"name":     user.Name,
			"timezone": user.Timezone,
		},
	})
}

// UpdatePassword 修改密码
// @Summary 修改密码
// @Description 校验当前密码后更新
// @Tags 设置
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "修改成功"
// @Failure 401 {object} map[string]interface{} "当前密码错误"
// @Router /api/settings/password [put]
func (h *Handler) UpdatePassword(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "参数错误: " + err.Error(),
		})
		return
	}
	if !user.CheckPassword(req.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code": 401,
			"msg":  "当前密码错误",
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
	h.db.Save(user)
	h.audit(c, user.ID, "change_password", map[string]any{})
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "密码已更新",
	})
}

// UpdateNotifications 更新通知偏好
// @Summary 更新通知偏好
// @Tags 设置
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "保存成功"
// @Router /api/settings/notifications [put]
func (h *Handler) UpdateNotifications(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var prefs map[string]any
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "参数错误: " + err.Error(),
		})
		return
	}
	if err := h.db.Model(user).Update("notify_prefs", prefs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "保存失败",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "通知偏好已保存",
		"data": prefs,
	})
}

// GenerateAPIKey 生成API密钥
// @Summary 生成API密钥
// @Description 生成并持久化新的API密钥，旧密钥即时失效
// @Tags 设置
// @Produce json
// @Success 200 {object} map[string]interface{} "生成成功"
// @Router /api/settings/api-keys/generate [post]
func (h *Handler) GenerateAPIKey(c *gin.Context) {
	user := middleware.CurrentUser(c)
	key := "anycast_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := h.db.Model(user).Update("api_key", key).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "生成失败",
		})
		return
	}
	h.audit(c, user.ID, "api_key:generate", map[string]any{})
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "生成成功",
		"data": gin.H{"api_key": key},
	})
}

// ListAuditLogs 获取审计日志
// @Summary 获取审计日志
// @Description 返回当前用户最近50条操作记录
// @Tags 设置
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回日志"
// @Router /api/settings/audit-logs [get]
func (h *Handler) ListAuditLogs(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var logs []models.AuditLog
	h.db.Where("user_id = ?", user.ID).
		Order("timestamp desc").Limit(50).Find(&logs)
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{"logs": logs},
	})
}

// GetSubscription 获取订阅信息
// @Summary 获取订阅信息
// @Tags 设置
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回订阅"
// @Router /api/settings/subscription [get]
func (h *Handler) GetSubscription(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var subscription models.Subscription
	if err := h.db.Where("user_id = ?", user.ID).First(&subscription).Error; err != nil {
		subscription = models.Subscription{
			UserID: user.ID,
			Plan:   "free",
			Limits: map[string]any{"entry_points": 3, "routes": 5},
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": subscription,
	})
}
