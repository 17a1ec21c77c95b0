package handlers

import (
	"fmt"
	"net"
	"net/http"
	"regexp"
	"time"

	"anycastweb/middleware"
	"anycastweb/models"
	"anycastweb/services"

	"github.com/gin-gonic/gin"
	"github.com/miekg/dns"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var subdomainPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

func validProtocol(protocol string) bool {
	switch protocol {
	case models.ProtocolTCP, models.ProtocolUDP, models.ProtocolTCPUDP:
		return true
	}
	return false
}

// validateAssignments 去重并校验所有目标入口节点归当前用户所有
func (h *Handler) validateAssignments(userID uint, ids []uint) ([]uint, error) {
	seen := make(map[uint]bool)
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return unique, nil
	}
	var count int64
	h.db.Model(&models.EntryPoint{}).
		Where("id IN ? AND user_id = ?", unique, userID).Count(&count)
	if count != int64(len(unique)) {
		return nil, fmt.Errorf("存在无效或不属于当前用户的入口节点")
	}
	return unique, nil
}

func (h *Handler) ownedRoute(c *gin.Context) *models.Route {
	user := middleware.CurrentUser(c)
	var route models.Route
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		First(&route).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code": 404,
			"msg":  "路由不存在",
		})
		return nil
	}
	return &route
}

func (h *Handler) routeEntryPointIDs(routeID uint) []uint {
	var ids []uint
	h.db.Model(&models.RouteAssignment{}).Where("route_id = ?", routeID).
		Order("entry_point_id asc").Pluck("entry_point_id", &ids)
	return ids
}

// ListRoutes 获取路由列表
// @Summary 获取路由列表
// @Description 查询当前用户的路由及关联的入口节点
// @Tags 路由管理
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回路由列表"
// @Router /api/routes [get]
func (h *Handler) ListRoutes(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var routes []models.Route
	if err := h.db.Where("user_id = ?", user.ID).
		Order("created_at desc").Find(&routes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "查询失败",
		})
		return
	}

	result := make([]map[string]any, 0, len(routes))
	for _, route := range routes {
		result = append(result, map[string]any{
			"id":           route.ID,
			"subdomain":    route.Subdomain,
			"client_ip":    route.ClientIP,
			"client_port":  route.ClientPort,
			"protocol":     route.Protocol,
			"use_haproxy":  route.UseHAProxy,
			"status":       route.Status,
			"settings":     route.Settings,
			"entry_points": h.routeEntryPointIDs(route.ID),
			"created_at":   route.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": result,
	})
}

// CreateRoute 创建路由
// @Summary 创建路由
// @Description 校验子域名、后端地址和入口节点归属，全部通过后才落库，并投递配置下发任务
// @Tags 路由管理
// @Accept json
// @Produce json
// @Param body body models.CreateRouteRequest true "路由配置参数"
// @Success 202 {object} map[string]interface{} "已受理"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Router /api/routes [post]
func (h *Handler) CreateRoute(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req models.CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "参数错误: " + err.Error(),
		})
		return
	}

	// 校验全部通过之前不写任何行
	if !subdomainPattern.MatchString(req.Subdomain) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "子域名格式错误",
		})
		return
	}
	if net.ParseIP(req.ClientIP) == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "后端IP地址格式错误",
		})
		return
	}
	if req.ClientPort < 1 || req.ClientPort > 65535 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "后端端口超出范围",
		})
		return
	}
	if req.Protocol == "" {
		req.Protocol = models.ProtocolTCP
	}
	if !validProtocol(req.Protocol) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "协议必须为 tcp / udp / tcp+udp",
		})
		return
	}
	entryPointIDs, err := h.validateAssignments(user.ID, req.EntryPoints)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  err.Error(),
		})
		return
	}

	useHAProxy := true
	if req.UseHAProxy != nil {
		useHAProxy = *req.UseHAProxy
	}
	route := models.Route{
		UserID:     user.ID,
		Subdomain:  req.Subdomain,
		ClientIP:   req.ClientIP,
		ClientPort: req.ClientPort,
		Protocol:   req.Protocol,
		UseHAProxy: useHAProxy,
		Status:     models.RouteActive,
		Settings:   map[string]any{"ddos_level": req.DDoSLevel, "rate_limit": req.RateLimit},
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&route).Error; err != nil {
			return err
		}
		for _, entryPointID := range entryPointIDs {
			assignment := models.RouteAssignment{
				RouteID:      route.ID,
				EntryPointID: entryPointID,
				Weight:       1,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&assignment).Error; err != nil {
				return err
			}
		}
		return tx.Create(&models.AuditLog{
			UserID:    user.ID,
			Action:    "route:create",
			Details:   map[string]any{"route_id": route.ID, "subdomain": route.Subdomain},
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

	h.queue.Submit(services.ApplyRouteJob{RouteID: route.ID})

	c.JSON(http.StatusAccepted, gin.H{
		"code": 202,
		"msg":  "创建成功，配置下发任务已启动",
		"data": route,
	})
}

// GetRoute 获取单个路由
// @Summary 获取单个路由
// @Tags 路由管理
// @Produce json
// @Param id path string true "路由ID"
// @Success 200 {object} map[string]interface{} "成功返回路由信息"
// @Failure 404 {object} map[string]interface{} "路由不存在"
// @Router /api/routes/{id} [get]
func (h *Handler) GetRoute(c *gin.Context) {
	route := h.ownedRoute(c)
	if route == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{
			"route":        route,
			"entry_points": h.routeEntryPointIDs(route.ID),
		},
	})
}

// UpdateRoute 更新路由
// @Summary 更新路由
// @Description 部分字段更新；提交entry_points时整体替换关联并去重
// @Tags 路由管理
// @Accept json
// @Produce json
// @Param id path string true "路由ID"
// @Param body body models.UpdateRouteRequest true "更新参数"
// @Success 200 {object} map[string]interface{} "更新成功"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Failure 404 {object} map[string]interface{} "路由不存在"
// @Router /api/routes/{id} [put]
func (h *Handler) UpdateRoute(c *gin.Context) {
	user := middleware.CurrentUser(c)
	route := h.ownedRoute(c)
	if route == nil {
		return
	}
	var req models.UpdateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 400,
			"msg":  "参数错误: " + err.Error(),
		})
		return
	}

	updates := map[string]any{}
	if req.Subdomain != nil {
		if !subdomainPattern.MatchString(*req.Subdomain) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code": 400,
				"msg":  "子域名格式错误",
			})
			return
		}
		updates["subdomain"] = *req.Subdomain
	}
	if req.ClientIP != nil {
		if net.ParseIP(*req.ClientIP) == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code": 400,
				"msg":  "后端IP地址格式错误",
			})
			return
		}
		updates["client_ip"] = *req.ClientIP
	}
	if req.ClientPort != nil {
		if *req.ClientPort < 1 || *req.ClientPort > 65535 {
			c.JSON(http.StatusBadRequest, gin.H{
				"code": 400,
				"msg":  "后端端口超出范围",
			})
			return
		}
		updates["client_port"] = *req.ClientPort
	}
	if req.Protocol != nil {
		if !validProtocol(*req.Protocol) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code": 400,
				"msg":  "协议必须为 tcp / udp / tcp+udp",
			})
			return
		}
		updates["protocol"] = *req.Protocol
	}
	if req.UseHAProxy != nil {
		updates["use_haproxy"] = *req.UseHAProxy
	}
	if req.DDoSLevel != nil || req.RateLimit != nil {
		settings := route.Settings
		if settings == nil {
			settings = map[string]any{}
		}
		if req.DDoSLevel != nil {
			settings["ddos_level"] = *req.DDoSLevel
		}
		if req.RateLimit != nil {
			settings["rate_limit"] = *req.RateLimit
		}
		updates["settings"] = settings
	}

	var entryPointIDs []uint
	if req.EntryPoints != nil {
		ids, err := h.validateAssignments(user.ID, *req.EntryPoints)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code": 400,
				"msg":  err.Error(),
			})
			return
		}
		entryPointIDs = ids
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(route).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.EntryPoints != nil {
			if err := tx.Where("route_id = ?", route.ID).
				Delete(&models.RouteAssignment{}).Error; err != nil {
				return err
			}
			for _, entryPointID := range entryPointIDs {
				assignment := models.RouteAssignment{
					RouteID:      route.ID,
					EntryPointID: entryPointID,
					Weight:       1,
				}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&assignment).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 500,
			"msg":  "更新失败: " + err.Error(),
		})
		return
	}
	h.db.First(route, route.ID)
	h.queue.Submit(services.ApplyRouteJob{RouteID: route.ID})

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "更新成功",
		"data": gin.H{
			"route":        route,
			"entry_points": h.routeEntryPointIDs(route.ID),
		},
	})
}

// DeleteRoute 删除路由
// @Summary 删除路由
// @Description 删除路由及其入口节点关联，入口节点本身保留
// @Tags 路由管理
// @Produce json
// @Param id path string true "路由ID"
// @Success 200 {object} map[string]interface{} "删除成功"
// @Failure 404 {object} map[string]interface{} "路由不存在"
// @Router /api/routes/{id} [delete]
func (h *Handler) DeleteRoute(c *gin.Context) {
	user := middleware.CurrentUser(c)
	route := h.ownedRoute(c)
	if route == nil {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", route.ID).
			Delete(&models.RouteAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Route{}, route.ID).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditLog{
			UserID:    user.ID,
			Action:    "route:delete",
			Details:   map[string]any{"route_id": route.ID},
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
	h.queue.Submit(services.ApplyRouteJob{RouteID: route.ID})

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "删除成功",
	})
}

// PauseRoute 暂停路由
// @Summary 暂停路由
// @Tags 路由管理
// @Produce json
// @Param id path string true "路由ID"
// @Success 200 {object} map[string]interface{} "已暂停"
// @Failure 404 {object} map[string]interface{} "路由不存在"
// @Router /api/routes/{id}/pause [post]
func (h *Handler) PauseRoute(c *gin.Context) {
	route := h.ownedRoute(c)
	if route == nil {
		return
	}
	h.db.Model(route).Update("status", models.RoutePaused)
	h.queue.Submit(services.ApplyRouteJob{RouteID: route.ID})
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "路由已暂停",
	})
}

// ResumeRoute 恢复路由
// @Summary 恢复路由
// @Tags 路由管理
// @Produce json
// @Param id path string true "路由ID"
// @Success 200 {object} map[string]interface{} "已恢复"
// @Failure 404 {object} map[string]interface{} "路由不存在"
// @Router /api/routes/{id}/resume [post]
func (h *Handler) ResumeRoute(c *gin.Context) {
	route := h.ownedRoute(c)
	if route == nil {
		return
	}
	h.db.Model(route).Update("status", models.RouteActive)
	h.queue.Submit(services.ApplyRouteJob{RouteID: route.ID})
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "路由已恢复",
	})
}

// CheckRouteDNS 检查路由DNS解析
// @Summary 检查路由DNS解析
// @Description 向配置的递归服务器查询A记录，尽力而为，查询失败视为尚未生效
// @Tags 路由管理
// @Produce json
// @Param id path string true "路由ID"
// @Success 200 {object} map[string]interface{} "查询结果"
// @Failure 404 {object} map[string]interface{} "路由不存在"
// @Router /api/routes/{id}/check-dns [get]
func (h *Handler) CheckRouteDNS(c *gin.Context) {
	route := h.ownedRoute(c)
	if route == nil {
		return
	}

	client := &dns.Client{Timeout: 3 * time.Second}
	message := &dns.Msg{}
	message.SetQuestion(dns.Fqdn(route.Subdomain), dns.TypeA)

	records := make([]map[string]any, 0)
	propagated := false
	response, _, err := client.Exchange(message, h.cfg.DNS.Resolver)
	if err == nil && response != nil && response.Rcode == dns.RcodeSuccess {
		for _, answer := range response.Answer {
			if a, ok := answer.(*dns.A); ok {
				records = append(records, map[string]any{
					"type":  "A",
					"value": a.A.String(),
					"ttl":   a.Hdr.Ttl,
				})
			}
		}
		propagated = len(records) > 0
	}

	msg := "DNS尚未生效"
	if propagated {
		msg = "DNS已生效"
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  msg,
		"data": gin.H{
			"subdomain":  route.Subdomain,
			"propagated": propagated,
			"records":    records,
		},
	})
}
