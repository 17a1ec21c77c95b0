package config

import (
	"crypto/rand"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Sweep    SweepConfig    `yaml:"sweep"`
	DNS      DNSConfig      `yaml:"dns"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
	Mode    string `yaml:"mode"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessMinutes  int    `yaml:"access_minutes"`
	RefreshMinutes int    `yaml:"refresh_minutes"`
}

type SweepConfig struct {
	HealthInterval    int `yaml:"health_interval"`    // 健康巡检间隔(秒)
	StatsInterval     int `yaml:"stats_interval"`     // 统计采集间隔(秒)
	RetentionInterval int `yaml:"retention_interval"` // 过期清理间隔(秒)
	RetentionDays     int `yaml:"retention_days"`
	Workers           int `yaml:"workers"`
	QueueSize         int `yaml:"queue_size"`
}

type DNSConfig struct {
	Resolver string `yaml:"resolver"`
}

// Load 加载配置文件，不存在时生成默认配置
func Load(configFile string) (*Config, error) {
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := createDefaultConfig(configFile); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = "0.0.0.0:8000"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "anycastweb.db"
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "anycastweb-secret-key-change-me"
	}
	if cfg.JWT.AccessMinutes <= 0 {
		cfg.JWT.AccessMinutes = 60 * 24
	}
	if cfg.JWT.RefreshMinutes <= 0 {
		cfg.JWT.RefreshMinutes = 60 * 24 * 30
	}
	if cfg.Sweep.HealthInterval <= 0 {
		cfg.Sweep.HealthInterval = 60
	}
	if cfg.Sweep.StatsInterval <= 0 {
		cfg.Sweep.StatsInterval = 300
	}
	if cfg.Sweep.RetentionInterval <= 0 {
		cfg.Sweep.RetentionInterval = 3600
	}
	if cfg.Sweep.RetentionDays <= 0 {
		cfg.Sweep.RetentionDays = 30
	}
	if cfg.Sweep.Workers <= 0 {
		cfg.Sweep.Workers = 4
	}
	if cfg.Sweep.QueueSize <= 0 {
		cfg.Sweep.QueueSize = 64
	}
	if cfg.DNS.Resolver == "" {
		cfg.DNS.Resolver = "1.1.1.1:53"
	}
	log.Printf("✓ 配置加载完成: %s (健康巡检: %ds, 统计采集: %ds, 工作协程: %d)",
		cfg.Server.Address, cfg.Sweep.HealthInterval, cfg.Sweep.StatsInterval, cfg.Sweep.Workers)
	return cfg, nil
}

func createDefaultConfig(filename string) error {
	secret := generateRandomString(64)
	defaultConfig := fmt.Sprintf(`server:
  address: "0.0.0.0:8000"
  mode: "release"

database:
  path: "anycastweb.db"

jwt:
  secret: "%s"
  access_minutes: 1440
  refresh_minutes: 43200

sweep:
  health_interval: 60
  stats_interval: 300
  retention_interval: 3600
  retention_days: 30
  workers: 4
  queue_size: 64

dns:
  resolver: "1.1.1.1:53"
`, secret)
	return os.WriteFile(filename, []byte(defaultConfig), 0600)
}

func generateRandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[randomInt(len(charset))]
	}
	return string(result)
}

func randomInt(max int) int {
	b := make([]byte, 1)
	_, err := rand.Read(b)
	if err != nil {
		return 0
	}
	return int(b[0]) % max
}
