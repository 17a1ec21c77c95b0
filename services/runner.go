package services

import (
	"log"
	"time"

	"anycastweb/config"
	"anycastweb/models"

	"gorm.io/gorm"
)

// Runner 执行后台任务和周期巡检，持有自己的数据库句柄
type Runner struct {
	db         *gorm.DB
	cfg        *config.Config
	stageDelay time.Duration
}

func NewRunner(db *gorm.DB, cfg *config.Config) *Runner {
	return &Runner{
		db:         db,
		cfg:        cfg,
		stageDelay: 500 * time.Millisecond,
	}
}

// SetStageDelay 调整安装阶段的模拟耗时
func (r *Runner) SetStageDelay(d time.Duration) {
	r.stageDelay = d
}

func (r *Runner) alert(userID uint, alertType, message string) {
	alert := models.Alert{
		UserID:    userID,
		Type:      alertType,
		Message:   message,
		Read:      false,
		Timestamp: time.Now(),
	}
	if err := r.db.Create(&alert).Error; err != nil {
		log.Printf("[ALERT] 告警写入失败: %v", err)
	}
}

// StartHealthService 启动健康巡检服务
func (r *Runner) StartHealthService() {
	interval := time.Duration(r.cfg.Sweep.HealthInterval) * time.Second
	log.Printf("✓ 健康巡检服务启动，间隔: %v", interval)
	go func() {
		time.Sleep(10 * time.Second)
		r.HealthSweep()
		ticker := time.NewTicker(interval)
		for range ticker.C {
			r.HealthSweep()
		}
	}()
}

// StartStatsService 启动统计采集服务
func (r *Runner) StartStatsService() {
	interval := time.Duration(r.cfg.Sweep.StatsInterval) * time.Second
	log.Printf("✓ 统计采集服务启动，间隔: %v", interval)
	go func() {
		time.Sleep(10 * time.Second)
		r.CollectStats()
		ticker := time.NewTicker(interval)
		for range ticker.C {
			r.CollectStats()
		}
	}()
}

// StartRetentionService 启动过期数据清理服务
func (r *Runner) StartRetentionService() {
	interval := time.Duration(r.cfg.Sweep.RetentionInterval) * time.Second
	log.Printf("✓ 数据清理服务启动，间隔: %v", interval)
	go func() {
		time.Sleep(30 * time.Second)
		r.CleanupStats()
		ticker := time.NewTicker(interval)
		for range ticker.C {
			r.CleanupStats()
		}
	}()
}
