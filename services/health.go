package services

import (
	"fmt"
	"log"
	"time"

	"anycastweb/models"
)

// StaleThreshold 心跳超时阈值，超过即判定为degraded
const StaleThreshold = 2 * time.Minute

// HealthSweep 健康巡检，只处理online/degraded两种状态之间的迁移；
// provisioning由安装任务负责，offline为人工状态。
// 状态未变化时同值重写，幂等
func (r *Runner) HealthSweep() {
	var entryPoints []models.EntryPoint
	if err := r.db.Where("status IN ?",
		[]string{models.EntryPointOnline, models.EntryPointDegraded}).
		Find(&entryPoints).Error; err != nil {
		log.Printf("[HEALTH] 查询入口节点失败: %v", err)
		return
	}

	now := time.Now()
	degradedCount := 0
	for _, entryPoint := range entryPoints {
		stale := entryPoint.LastSeen == nil || now.Sub(*entryPoint.LastSeen) > StaleThreshold
		if stale {
			r.db.Model(&models.EntryPoint{}).Where("id = ?", entryPoint.ID).
				Update("status", models.EntryPointDegraded)
			if entryPoint.Status != models.EntryPointDegraded {
				r.alert(entryPoint.UserID, models.AlertError,
					fmt.Sprintf("入口节点 %s 心跳超时，已标记为异常", entryPoint.Name))
				log.Printf("[HEALTH] 入口节点 %d (%s) 心跳超时", entryPoint.ID, entryPoint.Name)
			}
			degradedCount++
		} else {
			r.db.Model(&models.EntryPoint{}).Where("id = ?", entryPoint.ID).
				Update("status", models.EntryPointOnline)
		}
	}
	log.Printf("[HEALTH] 巡检完成: %d个节点, %d个异常", len(entryPoints), degradedCount)
}
