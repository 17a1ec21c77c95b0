package services

import (
	"log"
	"time"

	"anycastweb/models"
)

// CleanupStats 删除超出保留期的统计样本
func (r *Runner) CleanupStats() {
	cutoff := time.Now().AddDate(0, 0, -r.cfg.Sweep.RetentionDays)
	result := r.db.Where("timestamp < ?", cutoff).Delete(&models.Stat{})
	if result.Error != nil {
		log.Printf("[CLEANUP] 统计样本清理失败: %v", result.Error)
		return
	}
	log.Printf("[CLEANUP] 已清理 %d 条过期统计样本", result.RowsAffected)
}
