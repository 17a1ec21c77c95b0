package handlers

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"anycastweb/middleware"
	"anycastweb/models"
	"anycastweb/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ownedEntryPoint 按 id+归属 查询入口节点，未命中时返回nil并已写出404
func (h *Handler) ownedEntryPoint(c *gin.Context) *models.EntryPoint {
	user := middleware.CurrentUser(c)
	var entryPoint models.EntryPoint
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		First(&entryPoint).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code": 404,
			"msg":  "入口节点不存在",
		})
		return nil
	}
	return &entryPoint
}

// ListEntryPoints 获取入口节点列表
// @Summary 获取入口节点列表
// @Description 查询当前用户的入口节点，按创建时间倒序，附带最新利用率样本
// @Tags 入口节点
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回节点列表"
// @Failure 500 {object} map[string]interface{} "查询失败"
// @Router /api/entry-points [get]
func (h *Handler) ListEntryPoints(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var entryPoints []models.EntryPoint
	if err := h.db.Where("user_id = ?", user.ID).
		Order("created_at desc").Find(&entryPoints).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "查询失败",
		})
		return
	}

	// 每个节点取最新一条样本，随列表一起返回
	var latest []models.Stat
	sub := h.db.Model(&models.Stat{}).Select("MAX(id)").Group("entry_point_id")
	h.db.Where("id IN (?)", sub).Find(&latest)
	statMap := make(map[uint]models.Stat)
	for _, stat := range latest {
		statMap[stat.EntryPointID] = stat
	}

	result := make([]map[string]any, 0, len(entryPoints))
	for _, entryPoint := range entryPoints {
		item := map[string]any{
			"id":         entryPoint.ID,
			"name":       entryPoint.Name,
			"ip":         entryPoint.IP,
			"ssh_port":   entryPoint.SSHPort,
			"location":   entryPoint.Location,
			"wg_ip":      entryPoint.WgIP,
			"wg_pubkey":  entryPoint.WgPubkey,
			"provider":   entryPoint.Provider,
			"specs":      entryPoint.Specs,
			"status":     entryPoint.Status,
			"last_seen":  entryPoint.LastSeen,
			"created_at": entryPoint.CreatedAt,
		}
		if stat, ok := statMap[entryPoint.ID]; ok {
			item["latest_stat"] = stat
		}
		result = append(result, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": result,
	})
}

// CreateEntryPoint 创建入口节点
// @Summary 创建入口节点
// @Description 创建节点记录并在同一事务内写入十个待执行安装事件，随后投递异步安装任务
// @Tags 入口节点
// @Accept json
// @Produce json
// @Param body body models.CreateEntryPointRequest true "节点配置参数"
// @Success 202 {object} map[string]interface{} "已受理"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Router /api/entry-points [post]
func (h *Handler) CreateEntryPoint(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req models.CreateEntryPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "参数错误: " + err.Error(),
		})
		return
	}
	if net.ParseIP(req.IP) == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "IP地址格式错误",
		})
		return
	}
	if req.SSHPort == 0 {
		req.SSHPort = 22
	}
	if req.SSHPort < 1 || req.SSHPort > 65535 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "SSH端口超出范围",
		})
		return
	}

	entryPoint := models.EntryPoint{
		UserID:   user.ID,
		Name:     req.Name,
		IP:       req.IP,
		SSHPort:  req.SSHPort,
		Location: req.Location,
		WgIP:     req.WgIP,
		Provider: req.Provider,
		Specs:    req.Specs,
		Status:   models.EntryPointProvisioning,
	}
	// 节点与十个安装事件同一事务写入，保证并发创建不会漏种
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entryPoint).Error; err != nil {
			return err
		}
		for _, stage := range models.InstallStages {
			event := models.InstallEvent{
				EntryPointID: entryPoint.ID,
				Stage:        stage,
				Status:       models.InstallPending,
			}
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
		}
		return tx.Create(&models.AuditLog{
			UserID:    user.ID,
			Action:    "entry_point:create",
			Details:   map[string]any{"entry_point_id": entryPoint.ID, "name": entryPoint.Name},
			IPAddress: c.ClientIP(),
			Timestamp: time.Now(),
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "创建失败: " + err.Error(),
		})
		return
	}

	h.queue.Submit(services.InstallJob{EntryPointID: entryPoint.ID, Payload: req})

	c.JSON(http.StatusAccepted, gin.H{
		"code": 202,
		"msg":  "创建成功，安装任务已启动",
		"data": entryPoint,
	})
}

// GetEntryPoint 获取入口节点详情
// @Summary 获取入口节点详情
// @Description 返回节点信息、最近50条样本、安装事件和关联路由
// @Tags 入口节点
// @Produce json
// @Param id path string true "节点ID"
// @Success 200 {object} map[string]interface{} "成功返回节点详情"
// @Failure 404 {object} map[string]interface{} "节点不存在"
// @Router /api/entry-points/{id} [get]
func (h *Handler) GetEntryPoint(c *gin.Context) {
	entryPoint := h.ownedEntryPoint(c)
	if entryPoint == nil {
		return
	}

	var stats []models.Stat
	h.db.Where("entry_point_id = ?", entryPoint.ID).
		Order("timestamp desc").Limit(50).Find(&stats)

	var events []models.InstallEvent
	h.db.Where("entry_point_id = ?", entryPoint.ID).
		Order("created_at asc, id asc").Find(&events)

	var routeIDs []uint
	h.db.Model(&models.RouteAssignment{}).Where("entry_point_id = ?", entryPoint.ID).
		Pluck("route_id", &routeIDs)

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{
			"entry_point":    entryPoint,
			"stats":          stats,
			"install_events": events,
			"routes":         routeIDs,
		},
	})
}

// UpdateEntryPoint 更新入口节点
// @Summary 更新入口节点
// @Description 部分字段更新，未提交的字段不变，同时刷新心跳时间
// @Tags 入口节点
// @Accept json
// @Produce json
// @Param id path string true "节点ID"
// @Param body body models.UpdateEntryPointRequest true "更新参数"
// @Success 200 {object} map[string]interface{} "更新成功"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Failure 404 {object} map[string]interface{} "节点不存在"
// @Router /api/entry-points/{id} [put]
func (h *Handler) UpdateEntryPoint(c *gin.Context) {
	entryPoint := h.ownedEntryPoint(c)
	if entryPoint == nil {
		return
	}
	var req models.UpdateEntryPointRequest
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
	if req.IP != nil {
		if net.ParseIP(*req.IP) == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code": 400,
				"msg":  "IP地址格式错误",
			})
			return
		}
		updates["ip"] = *req.IP
	}
	if req.SSHPort != nil {
		if *req.SSHPort < 1 || *req.SSHPort > 65535 {
			c.JSON(http.StatusBadRequest, gin.H{
				"code": 400,
				"msg":  "SSH端口超出范围",
			})
			return
		}
		updates["ssh_port"] = *req.SSHPort
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.WgIP != nil {
		updates["wg_ip"] = *req.WgIP
	}
	if req.WgPubkey != nil {
		updates["wg_pubkey"] = *req.WgPubkey
	}
	if req.Provider != nil {
		updates["provider"] = *req.Provider
	}
	if req.Specs != nil {
		updates["specs"] = *req.Specs
	}
	updates["last_seen"] = time.Now()

	if err := h.db.Model(entryPoint).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "更新失败: " + err.Error(),
		})
		return
	}
	h.db.First(entryPoint, entryPoint.ID)

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "更新成功",
		"data": entryPoint,
	})
}

// DeleteEntryPoint 删除入口节点
// @Summary 删除入口节点
// @Description 级联删除节点的统计样本、DDoS日志、安装事件和路由关联，路由本身保留
// @Tags 入口节点
// @Produce json
// @Param id path string true "节点ID"
// @Success 200 {object} map[string]interface{} "删除成功"
// @Failure 404 {object} map[string]interface{} "节点不存在"
// @Router /api/entry-points/{id} [delete]
func (h *Handler) DeleteEntryPoint(c *gin.Context) {
	user := middleware.CurrentUser(c)
	entryPoint := h.ownedEntryPoint(c)
	if entryPoint == nil {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_point_id = ?", entryPoint.ID).Delete(&models.Stat{}).Error; err != nil {
			return err
		}
		if err := tx.Where("entry_point_id = ?", entryPoint.ID).Delete(&models.DDoSLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("entry_point_id = ?", entryPoint.ID).Delete(&models.InstallEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("entry_point_id = ?", entryPoint.ID).Delete(&models.RouteAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.EntryPoint{}, entryPoint.ID).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditLog{
			UserID:    user.ID,
			Action:    "entry_point:delete",
			Details:   map[string]any{"entry_point_id": entryPoint.ID},
			IPAddress: c.ClientIP(),
			Timestamp: time.Now(),
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "删除失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "删除成功",
	})
}

// RestartEntryPoint 重启入口节点服务
// @Summary 重启入口节点服务
// @Description 投递异步重启任务，结果通过节点状态和告警观察
// @Tags 入口节点
// @Produce json
// @Param id path string true "节点ID"
// @Success 202 {object} map[string]interface{} "已受理"
// @Failure 404 {object} map[string]interface{} "节点不存在"
// @Router /api/entry-points/{id}/restart [post]
func (h *Handler) RestartEntryPoint(c *gin.Context) {
	user := middleware.CurrentUser(c)
	entryPoint := h.ownedEntryPoint(c)
	if entryPoint == nil {
		return
	}

	h.queue.Submit(services.RestartJob{EntryPointID: entryPoint.ID})
	h.audit(c, user.ID, "entry_point:restart", map[string]any{"entry_point_id": entryPoint.ID})

	c.JSON(http.StatusAccepted, gin.H{
		"code": 202,
		"msg":  "重启任务已启动",
	})
}

// EntryPointStats 获取入口节点统计样本
// @Summary 获取入口节点统计样本
// @Description 返回最近288条样本，按时间升序
// @Tags 入口节点
// @Produce json
// @Param id path string true "节点ID"
// @Success 200 {object} map[string]interface{} "成功返回样本"
// @Failure 404 {object} map[string]interface{} "节点不存在"
// @Router /api/entry-points/{id}/stats [get]
func (h *Handler) EntryPointStats(c *gin.Context) {
	entryPoint := h.ownedEntryPoint(c)
	if entryPoint == nil {
		return
	}

	var stats []models.Stat
	h.db.Where("entry_point_id = ?", entryPoint.ID).
		Order("timestamp desc").Limit(288).Find(&stats)

	// 倒序取出后翻转为升序
	for i, j := 0, len(stats)-1; i < j; i, j = i+1, j-1 {
		stats[i], stats[j] = stats[j], stats[i]
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{
			"entry_point_id": entryPoint.ID,
			"points":         stats,
		},
	})
}

// EntryPointLogs 获取入口节点安装日志
// @Summary 获取入口节点安装日志
// @Description 返回最近50条安装事件，按时间倒序
// @Tags 入口节点
// @Produce json
// @Param id path string true "节点ID"
// @Success 200 {object} map[string]interface{} "成功返回日志"
// @Failure 404 {object} map[string]interface{} "节点不存在"
// @Router /api/entry-points/{id}/logs [get]
func (h *Handler) EntryPointLogs(c *gin.Context) {
	entryPoint := h.ownedEntryPoint(c)
	if entryPoint == nil {
		return
	}

	var events []models.InstallEvent
	h.db.Where("entry_point_id = ?", entryPoint.ID).
		Order("created_at desc, id desc").Limit(50).Find(&events)

	logs := make([]map[string]any, 0, len(events))
	for _, event := range events {
		logs = append(logs, map[string]any{
			"stage":     event.Stage,
			"status":    event.Status,
			"message":   event.Message,
			"timestamp": event.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{"logs": logs},
	})
}

// EntryPointInstallEvents 获取安装事件列表
// @Summary 获取安装事件列表
// @Description 按创建顺序返回全部安装事件
// @Tags 入口节点
// @Produce json
// @Param id path string true "节点ID"
// @Success 200 {object} map[string]interface{} "成功返回事件"
// @Failure 404 {object} map[string]interface{} "节点不存在"
// @Router /api/entry-points/{id}/install-events [get]
func (h *Handler) EntryPointInstallEvents(c *gin.Context) {
	entryPoint := h.ownedEntryPoint(c)
	if entryPoint == nil {
		return
	}

	var events []models.InstallEvent
	h.db.Where("entry_point_id = ?", entryPoint.ID).
		Order("created_at asc, id asc").Find(&events)

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": events,
	})
}

func parseID(c *gin.Context) uint {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id)
}
