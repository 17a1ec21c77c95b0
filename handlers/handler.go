package handlers

import (
	"sync/atomic"
	"time"

	"anycastweb/config"
	"anycastweb/models"
	"anycastweb/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler 持有各接口共享的依赖，启动时显式构造
type Handler struct {
	db          *gorm.DB
	cfg         *config.Config
	queue       *services.Queue
	runner      *services.Runner
	maintenance atomic.Bool
}

func New(db *gorm.DB, cfg *config.Config, queue *services.Queue, runner *services.Runner) *Handler {
	return &Handler{
		db:     db,
		cfg:    cfg,
		queue:  queue,
		runner: runner,
	}
}

func (h *Handler) audit(c *gin.Context, userID uint, action string, details map[string]any) {
	h.db.Create(&models.AuditLog{
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: c.ClientIP(),
		Timestamp: time.Now(),
	})
}

// Healthz 健康检查
// @Summary 健康检查
// @Produce json
// @Success 200 {object} map[string]interface{} "服务状态"
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(200, gin.H{
		"code": 200,
		"msg":  "ok",
		"data": gin.H{
			"maintenance": h.maintenance.Load(),
		},
	})
}
