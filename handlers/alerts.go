package handlers

import (
	"net/http"

	"anycastweb/middleware"
	"anycastweb/models"

	"github.com/gin-gonic/gin"
)

// ListAlerts 获取告警列表
// @Summary 获取告警列表
// @Description 查询当前用户的告警，按时间倒序
// @Tags 告警
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回告警列表"
// @Router /api/alerts [get]
func (h *Handler) ListAlerts(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var alerts []models.Alert
	if err := h.db.Where("user_id = ?", user.ID).
		Order("timestamp desc").Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "查询失败",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": alerts,
	})
}

// MarkAlertRead 标记告警已读
// @Summary 标记告警已读
// @Tags 告警
// @Produce json
// @Param id path string true "告警ID"
// @Success 200 {object} map[string]interface{} "已更新"
// @Router /api/alerts/{id}/read [post]
func (h *Handler) MarkAlertRead(c *gin.Context) {
	user := middleware.CurrentUser(c)
	h.db.Model(&models.Alert{}).
		Where("id = ? AND user_id = ?", parseID(c), user.ID).
		Update("read", true)
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "已更新",
	})
}

// DeleteAlert 删除告警
// @Summary 删除告警
// @Tags 告警
// @Produce json
// @Param id path string true "告警ID"
// @Success 200 {object} map[string]interface{} "已删除"
// @Router /api/alerts/{id} [delete]
func (h *Handler) DeleteAlert(c *gin.Context) {
	user := middleware.CurrentUser(c)
	h.db.Where("id = ? AND user_id = ?", parseID(c), user.ID).
		Delete(&models.Alert{})
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "已删除",
	})
}
