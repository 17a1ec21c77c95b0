package models

import (
	"time"
)

const (
	AlertInfo    = "info"
	AlertSuccess = "success"
	AlertWarning = "warning"
	AlertError   = "error"
)

type Alert struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Type      string    `json:"type" gorm:"size:32"`
	Message   string    `json:"message" gorm:"type:text"`
	Read      bool      `json:"read" gorm:"default:false"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
}

type AuditLog struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"index"`
	Action    string         `json:"action" gorm:"size:255"`
	Details   map[string]any `json:"details" gorm:"serializer:json"`
	IPAddress string         `json:"ip_address" gorm:"size:64"`
	Timestamp time.Time      `json:"timestamp" gorm:"index"`
}
