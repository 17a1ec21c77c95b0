package handlers

import (
	"net/http"

	"anycastweb/models"

	"github.com/gin-gonic/gin"
)

// AdminListUsers 获取用户列表
// @Summary 获取用户列表
// @Description 管理接口，返回全部用户
// @Tags 管理
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回用户列表"
// @Failure 403 {object} map[string]interface{} "权限不足"
// @Router /api/admin/users [get]
func (h *Handler) AdminListUsers(c *gin.Context) {
	var users []models.User
	if err := h.db.Order("created_at desc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "查询失败",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": users,
	})
}

// AdminSystemStats 获取系统统计
// @Summary 获取系统统计
// @Description 管理接口，返回全局计数
// @Tags 管理
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回统计"
// @Failure 403 {object} map[string]interface{} "权限不足"
// @Router /api/admin/system-stats [get]
func (h *Handler) AdminSystemStats(c *gin.Context) {
	var users, entryPoints, routes, alerts int64
	h.db.Model(&models.User{}).Count(&users)
	h.db.Model(&models.EntryPoint{}).Count(&entryPoints)
	h.db.Model(&models.Route{}).Count(&routes)
	h.db.Model(&models.Alert{}).Count(&alerts)

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{
			"users":        users,
			"entry_points": entryPoints,
			"routes":       routes,
			"alerts":       alerts,
		},
	})
}

// AdminMaintenanceMode 切换维护模式
// @Summary 切换维护模式
// @Description 管理接口，维护状态通过健康检查接口暴露
// @Tags 管理
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "切换成功"
// @Failure 403 {object} map[string]interface{} "权限不足"
// @Router /api/admin/maintenance-mode [post]
func (h *Handler) AdminMaintenanceMode(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "参数错误",
		})
		return
	}
	h.maintenance.Store(req.Enabled)
	msg := "维护模式已关闭"
	if req.Enabled {
		msg = "维护模式已开启"
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  msg,
	})
}

// AdminTriggerHealthSweep 手动触发健康巡检
// @Summary 手动触发健康巡检
// @Tags 管理
// @Produce json
// @Success 202 {object} map[string]interface{} "已启动"
// @Failure 403 {object} map[string]interface{} "权限不足"
// @Router /api/admin/sweep/health [post]
func (h *Handler) AdminTriggerHealthSweep(c *gin.Context) {
	go h.runner.HealthSweep()
	c.JSON(http.StatusAccepted, gin.H{
		"code": 202,
		"msg":  "健康巡检已启动",
	})
}

// AdminTriggerStatsSweep 手动触发统计采集
// @Summary 手动触发统计采集
// @Tags 管理
// @Produce json
// @Success 202 {object} map[string]interface{} "已启动"
// @Failure 403 {object} map[string]interface{} "权限不足"
// @Router /api/admin/sweep/stats [post]
func (h *Handler) AdminTriggerStatsSweep(c *gin.Context) {
	go h.runner.CollectStats()
	c.JSON(http.StatusAccepted, gin.H{
		"code": 202,
		"msg":  "统计采集已启动",
	})
}

// AdminTriggerRetentionSweep 手动触发过期数据清理
// @Summary 手动触发过期数据清理
// @Tags 管理
// @Produce json
// @Success 202 {object} map[string]interface{} "已启动"
// @Failure 403 {object} map[string]interface{} "权限不足"
// @Router /api/admin/sweep/retention [post]
func (h *Handler) AdminTriggerRetentionSweep(c *gin.Context) {
	go h.runner.CleanupStats()
	c.JSON(http.StatusAccepted, gin.H{
		"code": 202,
		"msg":  "数据清理已启动",
	})
}
