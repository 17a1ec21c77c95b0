package models

import (
	"time"
)

type Stat struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	EntryPointID uint      `json:"entry_point_id" gorm:"index;not null"`
	CPU          int       `json:"cpu"`
	RAM          int       `json:"ram"`
	TrafficIn    int64     `json:"traffic_in"`
	TrafficOut   int64     `json:"traffic_out"`
	Connections  int       `json:"connections"`
	Timestamp    time.Time `json:"timestamp" gorm:"index"`
}

type DDoSLog struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	EntryPointID   uint      `json:"entry_point_id" gorm:"index;not null"`
	AttackType     string    `json:"attack_type" gorm:"size:64"`
	SourceIP       string    `json:"source_ip" gorm:"size:64"`
	PacketsBlocked int64     `json:"packets_blocked"`
	Timestamp      time.Time `json:"timestamp" gorm:"index"`
}

func (DDoSLog) TableName() string {
	return "ddos_logs"
}
