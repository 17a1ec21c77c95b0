package services

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"anycastweb/models"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// 各安装阶段执行中的提示信息
var stageMessages = map[string]string{
	"connect_ssh":       "正在通过SSH连接节点",
	"update_system":     "正在更新系统软件包",
	"install_wireguard": "正在安装WireGuard",
	"install_haproxy":   "正在安装HAProxy",
	"install_nftables":  "正在安装nftables",
	"generate_keys":     "正在生成节点密钥对",
	"configure_mesh":    "正在配置组网接口",
	"add_peers":         "正在添加对端节点",
	"apply_routes":      "正在下发路由配置",
	"start_services":    "正在启动服务",
}

// RunInstall 按创建顺序执行十个安装阶段；节点记录消失时静默中止，
// 阶段失败时标记failed并终止本次执行，不做重试
func (r *Runner) RunInstall(job InstallJob) {
	log.Printf("[INSTALL] 开始安装入口节点 %d", job.EntryPointID)

	var entryPoint models.EntryPoint
	if err := r.db.First(&entryPoint, job.EntryPointID).Error; err != nil {
		log.Printf("[INSTALL] 入口节点 %d 不存在，任务中止", job.EntryPointID)
		return
	}

	var events []models.InstallEvent
	if err := r.db.Where("entry_point_id = ?", job.EntryPointID).
		Order("created_at asc, id asc").Find(&events).Error; err != nil {
		log.Printf("[INSTALL] 查询安装事件失败: %v", err)
		return
	}

	var wgPubkey string
	for i := range events {
		event := &events[i]

		// 节点在安装过程中被删除则静默中止
		var count int64
		r.db.Model(&models.EntryPoint{}).Where("id = ?", job.EntryPointID).Count(&count)
		if count == 0 {
			log.Printf("[INSTALL] 入口节点 %d 已被删除，任务中止", job.EntryPointID)
			return
		}

		r.db.Model(event).Updates(map[string]any{
			"status":  models.InstallRunning,
			"message": stageMessages[event.Stage],
		})

		pubkey, err := r.performStage(event.Stage)
		if err != nil {
			r.db.Model(event).Updates(map[string]any{
				"status":  models.InstallFailed,
				"message": err.Error(),
			})
			log.Printf("[INSTALL] 入口节点 %d 阶段 %s 失败: %v", job.EntryPointID, event.Stage, err)
			return
		}
		if pubkey != "" {
			wgPubkey = pubkey
		}

		r.db.Model(event).Update("status", models.InstallCompleted)
	}

	wgIP := job.Payload.WgIP
	if wgIP == "" {
		wgIP = r.allocateMeshIP()
	}
	now := time.Now()
	result := r.db.Model(&models.EntryPoint{}).Where("id = ?", job.EntryPointID).Updates(map[string]any{
		"status":    models.EntryPointOnline,
		"wg_ip":     wgIP,
		"wg_pubkey": wgPubkey,
		"last_seen": now,
	})
	if result.Error != nil || result.RowsAffected == 0 {
		log.Printf("[INSTALL] 入口节点 %d 状态更新失败，任务中止", job.EntryPointID)
		return
	}

	r.seedStats(job.EntryPointID, now)
	r.alert(entryPoint.UserID, models.AlertSuccess,
		fmt.Sprintf("入口节点 %s 安装完成，已上线", entryPoint.Name))
	log.Printf("[INSTALL] 入口节点 %d 安装完成，组网地址: %s", job.EntryPointID, wgIP)
}

// performStage 执行单个安装阶段；除密钥生成外均为占位实现，
// 真实的SSH自动化由外部系统接管
func (r *Runner) performStage(stage string) (string, error) {
	if r.stageDelay > 0 {
		time.Sleep(r.stageDelay)
	}
	if stage == "generate_keys" {
		key, err := wgtypes.GeneratePrivateKey()
		if err != nil {
			return "", fmt.Errorf("密钥生成失败: %w", err)
		}
		return key.PublicKey().String(), nil
	}
	return "", nil
}

// allocateMeshIP 从 10.0.0.0/24 地址池分配未占用的组网地址
func (r *Runner) allocateMeshIP() string {
	for attempt := 0; attempt < 20; attempt++ {
		candidate := fmt.Sprintf("10.0.0.%d", rand.Intn(253)+2)
		var count int64
		r.db.Model(&models.EntryPoint{}).Where("wg_ip = ?", candidate).Count(&count)
		if count == 0 {
			return candidate
		}
	}
	return fmt.Sprintf("10.0.0.%d", rand.Intn(253)+2)
}

// seedStats 写入一批回溯的利用率样本，供面板图表初次展示
func (r *Runner) seedStats(entryPointID uint, now time.Time) {
	for i := 12; i >= 1; i-- {
		stat := models.Stat{
			EntryPointID: entryPointID,
			CPU:          rand.Intn(81) + 10,
			RAM:          rand.Intn(81) + 10,
			TrafficIn:    int64(rand.Intn(90000) + 10000),
			TrafficOut:   int64(rand.Intn(90000) + 10000),
			Connections:  rand.Intn(9900) + 100,
			Timestamp:    now.Add(-time.Duration(i) * 5 * time.Minute),
		}
		if err := r.db.Create(&stat).Error; err != nil {
			log.Printf("[INSTALL] 初始样本写入失败: %v", err)
			return
		}
	}
}

// RunRestart 重启入口节点服务的占位任务
func (r *Runner) RunRestart(job RestartJob) {
	var entryPoint models.EntryPoint
	if err := r.db.First(&entryPoint, job.EntryPointID).Error; err != nil {
		log.Printf("[RESTART] 入口节点 %d 不存在，任务中止", job.EntryPointID)
		return
	}
	log.Printf("[RESTART] 重启入口节点 %d 服务", job.EntryPointID)

	r.db.Model(&models.EntryPoint{}).Where("id = ?", job.EntryPointID).
		Update("status", models.EntryPointProvisioning)
	if r.stageDelay > 0 {
		time.Sleep(r.stageDelay)
	}

	now := time.Now()
	result := r.db.Model(&models.EntryPoint{}).Where("id = ?", job.EntryPointID).Updates(map[string]any{
		"status":    models.EntryPointOnline,
		"last_seen": now,
	})
	if result.Error != nil || result.RowsAffected == 0 {
		log.Printf("[RESTART] 入口节点 %d 已被删除，任务中止", job.EntryPointID)
		return
	}
	r.alert(entryPoint.UserID, models.AlertInfo,
		fmt.Sprintf("入口节点 %s 服务已重启", entryPoint.Name))
}
