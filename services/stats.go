package services

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"anycastweb/models"
)

// CPUAlertThreshold CPU超过该值时发出告警
const CPUAlertThreshold = 85

// CollectStats 为每个入口节点追加一条利用率样本并刷新心跳。
// 样本为有界随机的占位数据，真实采集由外部agent上报接管
func (r *Runner) CollectStats() {
	var entryPoints []models.EntryPoint
	if err := r.db.Find(&entryPoints).Error; err != nil {
		log.Printf("[STATS] 查询入口节点失败: %v", err)
		return
	}

	now := time.Now()
	for _, entryPoint := range entryPoints {
		stat := models.Stat{
			EntryPointID: entryPoint.ID,
			CPU:          rand.Intn(81) + 10,
			RAM:          rand.Intn(81) + 10,
			TrafficIn:    int64(rand.Intn(90000) + 10000),
			TrafficOut:   int64(rand.Intn(90000) + 10000),
			Connections:  rand.Intn(9900) + 100,
			Timestamp:    now,
		}
		if err := r.db.Create(&stat).Error; err != nil {
			log.Printf("[STATS] 样本写入失败: %v", err)
			continue
		}
		r.db.Model(&models.EntryPoint{}).Where("id = ?", entryPoint.ID).
			Update("last_seen", now)

		if stat.CPU > CPUAlertThreshold {
			r.alert(entryPoint.UserID, models.AlertWarning,
				fmt.Sprintf("入口节点 %s CPU使用率过高: %d%%", entryPoint.Name, stat.CPU))
		}
	}
	log.Printf("[STATS] 采集完成: %d个节点", len(entryPoints))
}
