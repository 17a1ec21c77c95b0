package services

import (
	"fmt"
	"log"

	"anycastweb/models"
)

// ApplyRoute 路由配置下发的占位任务。真实的HAProxy/nftables规则
// 生成由外部自动化接管，这里仅在路由未暂停时通知同步完成
func (r *Runner) ApplyRoute(job ApplyRouteJob) {
	var route models.Route
	if err := r.db.First(&route, job.RouteID).Error; err != nil {
		// 删除路由后仍会提交下发任务，记录后中止
		log.Printf("[ROUTE] 路由 %d 不存在，配置下发中止", job.RouteID)
		return
	}
	if route.Status == models.RoutePaused {
		log.Printf("[ROUTE] 路由 %d 已暂停，跳过配置下发", job.RouteID)
		return
	}
	r.alert(route.UserID, models.AlertInfo,
		fmt.Sprintf("路由 %s 配置已同步", route.Subdomain))
	log.Printf("[ROUTE] 路由 %d (%s) 配置已同步", route.ID, route.Subdomain)
}

// SendResetMail 发送密码重置邮件的占位任务
func (r *Runner) SendResetMail(job ResetMailJob) {
	log.Printf("[MAIL] 密码重置邮件已发送: %s (token: %s...)", job.Email, job.Token[:8])
}
