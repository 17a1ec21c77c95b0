package models

import (
	"time"
)

const (
	EntryPointProvisioning = "provisioning"
	EntryPointOnline       = "online"
	EntryPointDegraded     = "degraded"
	EntryPointOffline      = "offline"
)

type EntryPoint struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	Name      string         `json:"name" gorm:"size:120;not null"`
	IP        string         `json:"ip" gorm:"size:64;not null"`
	SSHPort   int            `json:"ssh_port" gorm:"default:22"`
	Location  string         `json:"location" gorm:"size:120;not null"`
	WgIP      string         `json:"wg_ip" gorm:"size:64"`
	WgPubkey  string         `json:"wg_pubkey" gorm:"size:255"`
	Provider  string         `json:"provider" gorm:"size:64"`
	Specs     map[string]any `json:"specs" gorm:"serializer:json"`
	Status    string         `json:"status" gorm:"size:32;default:'provisioning'"`
	LastSeen  *time.Time     `json:"last_seen"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

const (
	InstallPending   = "pending"
	InstallRunning   = "running"
	InstallCompleted = "completed"
	InstallFailed    = "failed"
)

// InstallStages 安装阶段固定顺序，创建入口节点时一次性写入
var InstallStages = []string{
	"connect_ssh",
	"update_system",
	"install_wireguard",
	"install_haproxy",
	"install_nftables",
	"generate_keys",
	"configure_mesh",
	"add_peers",
	"apply_routes",
	"start_services",
}

type InstallEvent struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	EntryPointID uint      `json:"entry_point_id" gorm:"index;not null"`
	Stage        string    `json:"stage" gorm:"size:64;not null"`
	Status       string    `json:"status" gorm:"size:32;default:'pending'"`
	Message      string    `json:"message" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateEntryPointRequest struct {
	Name     string         `json:"name" binding:"required"`
	IP       string         `json:"ip" binding:"required"`
	SSHPort  int            `json:"ssh_port"`
	Location string         `json:"location" binding:"required"`
	WgIP     string         `json:"wg_ip"`
	Provider string         `json:"provider"`
	Specs    map[string]any `json:"specs"`
}

// UpdateEntryPointRequest 部分更新，nil字段不修改；状态只由后台任务变更
type UpdateEntryPointRequest struct {
	Name     *string         `json:"name"`
	IP       *string         `json:"ip"`
	SSHPort  *int            `json:"ssh_port"`
	Location *string         `json:"location"`
	WgIP     *string         `json:"wg_ip"`
	WgPubkey *string         `json:"wg_pubkey"`
	Provider *string         `json:"provider"`
	Specs    *map[string]any `json:"specs"`
}
