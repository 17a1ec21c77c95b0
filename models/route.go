package models

import (
	"time"
)

const (
	RouteActive = "active"
	RoutePaused = "paused"

	ProtocolTCP    = "tcp"
	ProtocolUDP    = "udp"
	ProtocolTCPUDP = "tcp+udp"
)

type Route struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	UserID     uint           `json:"user_id" gorm:"index;not null"`
	Subdomain  string         `json:"subdomain" gorm:"size:255;not null"`
	ClientIP   string         `json:"client_ip" gorm:"size:64;not null"`
	ClientPort int            `json:"client_port" gorm:"not null"`
	Protocol   string         `json:"protocol" gorm:"size:32;default:'tcp'"`
	UseHAProxy bool           `json:"use_haproxy" gorm:"default:true"`
	Status     string         `json:"status" gorm:"size:32;default:'active'"`
	Settings   map[string]any `json:"settings" gorm:"serializer:json"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type RouteAssignment struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RouteID      uint      `json:"route_id" gorm:"not null;uniqueIndex:idx_route_entry"`
	EntryPointID uint      `json:"entry_point_id" gorm:"not null;uniqueIndex:idx_route_entry"`
	Weight       int       `json:"weight" gorm:"default:1"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateRouteRequest struct {
	Subdomain   string `json:"subdomain" binding:"required"`
	ClientIP    string `json:"client_ip" binding:"required"`
	ClientPort  int    `json:"client_port" binding:"required"`
	Protocol    string `json:"protocol"`
	UseHAProxy  *bool  `json:"use_haproxy"`
	DDoSLevel   string `json:"ddos_level"`
	RateLimit   int    `json:"rate_limit"`
	EntryPoints []uint `json:"entry_points"`
}

// UpdateRouteRequest 部分更新，nil字段不修改
type UpdateRouteRequest struct {
	Subdomain   *string `json:"subdomain"`
	ClientIP    *string `json:"client_ip"`
	ClientPort  *int    `json:"client_port"`
	Protocol    *string `json:"protocol"`
	UseHAProxy  *bool   `json:"use_haproxy"`
	DDoSLevel   *string `json:"ddos_level"`
	RateLimit   *int    `json:"rate_limit"`
	EntryPoints *[]uint `json:"entry_points"`
}
