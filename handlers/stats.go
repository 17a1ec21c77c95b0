package handlers

import (
	"math"
	"net/http"
	"strings"
	"time"

	"anycastweb/middleware"
	"anycastweb/models"

	"github.com/gin-gonic/gin"
)

// StatsOverview 获取总览统计
// @Summary 获取总览统计
// @Description 最近一小时流量与连接数汇总、节点在线情况、DDoS拦截总量
// @Tags 统计
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回总览"
// @Router /api/stats/overview [get]
func (h *Handler) StatsOverview(c *gin.Context) {
	user := middleware.CurrentUser(c)
	now := time.Now()
	since := now.Add(-time.Hour)

	var traffic int64
	h.db.Model(&models.Stat{}).
		Joins("JOIN entry_points ON entry_points.id = stats.entry_point_id").
		Where("entry_points.user_id = ? AND stats.timestamp >= ?", user.ID, since).
		Select("COALESCE(SUM(stats.traffic_in + stats.traffic_out), 0)").
		Scan(&traffic)

	var connections int64
	h.db.Model(&models.Stat{}).
		Joins("JOIN entry_points ON entry_points.id = stats.entry_point_id").
		Where("entry_points.user_id = ? AND stats.timestamp >= ?", user.ID, since).
		Select("COALESCE(SUM(stats.connections), 0)").
		Scan(&connections)

	var total, online int64
	h.db.Model(&models.EntryPoint{}).Where("user_id = ?", user.ID).Count(&total)
	h.db.Model(&models.EntryPoint{}).
		Where("user_id = ? AND status = ?", user.ID, models.EntryPointOnline).Count(&online)

	var ddosBlocked int64
	h.db.Model(&models.DDoSLog{}).
		Joins("JOIN entry_points ON entry_points.id = ddos_logs.entry_point_id").
		Where("entry_points.user_id = ?", user.ID).
		Select("COALESCE(SUM(ddos_logs.packets_blocked), 0)").
		Scan(&ddosBlocked)

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{
			"traffic_gbps": math.Round(float64(traffic)/1e9*100) / 100,
			"connections":  connections,
			"entry_points": gin.H{"online": online, "total": total},
			"ddos_blocked": ddosBlocked,
			"timestamp":    now,
		},
	})
}

// StatsTraffic 获取流量时序
// @Summary 获取流量时序
// @Description 按时间区间聚合流量，range支持 1h/24h/7d
// @Tags 统计
// @Produce json
// @Param range query string false "时间区间(1h/24h/7d)"
// @Success 200 {object} map[string]interface{} "成功返回时序"
// @Router /api/stats/traffic [get]
func (h *Handler) StatsTraffic(c *gin.Context) {
	user := middleware.CurrentUser(c)
	rangeParam := c.DefaultQuery("range", "1h")

	var interval time.Duration
	var totalPoints int
	switch rangeParam {
	case "1h":
		interval = 5 * time.Minute
		totalPoints = 12
	case "24h":
		interval = time.Hour
		totalPoints = 24
	default:
		rangeParam = "7d"
		interval = 6 * time.Hour
		totalPoints = 28
	}

	now := time.Now()
	since := now.Add(-interval * time.Duration(totalPoints))

	var stats []models.Stat
	h.db.Joins("JOIN entry_points ON entry_points.id = stats.entry_point_id").
		Where("entry_points.user_id = ? AND stats.timestamp >= ?", user.ID, since).
		Find(&stats)

	// 按区间归并到桶，缺失的桶补零
	buckets := make(map[time.Time]int64)
	for _, stat := range stats {
		bucket := stat.Timestamp.Truncate(interval)
		buckets[bucket] += stat.TrafficIn + stat.TrafficOut
	}

	points := make([]map[string]any, 0, totalPoints)
	for current := since.Truncate(interval); !current.After(now); current = current.Add(interval) {
		points = append(points, map[string]any{
			"timestamp": current,
			"value":     buckets[current],
		})
	}
	if len(points) > totalPoints {
		points = points[len(points)-totalPoints:]
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{
			"range":  rangeParam,
			"points": points,
		},
	})
}

// StatsGeo 获取地理分布
// @Summary 获取地理分布
// @Description 按位置标签的国家部分聚合入口节点数量
// @Tags 统计
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回分布"
// @Router /api/stats/geo [get]
func (h *Handler) StatsGeo(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var entryPoints []models.EntryPoint
	h.db.Where("user_id = ?", user.ID).Find(&entryPoints)

	counts := make(map[string]int)
	for _, entryPoint := range entryPoints {
		country := "Unknown"
		if entryPoint.Location != "" {
			parts := strings.Split(entryPoint.Location, ",")
			country = strings.TrimSpace(parts[len(parts)-1])
		}
		counts[country]++
	}

	countries := make([]map[string]any, 0, len(counts))
	for country, count := range counts {
		code := strings.ToUpper(country)
		if len(code) > 2 {
			code = code[:2]
		}
		countries = append(countries, map[string]any{
			"code":    code,
			"country": country,
			"traffic": count,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{"countries": countries},
	})
}

// StatsDDoS 获取DDoS日志
// @Summary 获取DDoS日志
// @Description 返回当前用户节点最近50条拦截记录
// @Tags 统计
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回日志"
// @Router /api/stats/ddos [get]
func (h *Handler) StatsDDoS(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var logs []models.DDoSLog
	h.db.Joins("JOIN entry_points ON entry_points.id = ddos_logs.entry_point_id").
		Where("entry_points.user_id = ?", user.ID).
		Order("ddos_logs.timestamp desc").Limit(50).Find(&logs)

	attacks := make([]map[string]any, 0, len(logs))
	for _, entry := range logs {
		attacks = append(attacks, map[string]any{
			"type":      entry.AttackType,
			"source":    entry.SourceIP,
			"packets":   entry.PacketsBlocked,
			"timestamp": entry.Timestamp,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": gin.H{"attacks": attacks},
	})
}
