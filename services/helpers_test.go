package services

import (
	"path/filepath"
	"testing"
	"time"

	"anycastweb/config"
	"anycastweb/database"
	"anycastweb/models"

	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Sweep: config.SweepConfig{
			HealthInterval:    60,
			StatsInterval:     300,
			RetentionInterval: 3600,
			RetentionDays:     30,
			Workers:           2,
			QueueSize:         16,
		},
	}
}

func testRunner(t *testing.T) (*Runner, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	runner := NewRunner(db, testConfig())
	runner.SetStageDelay(0)
	return runner, db
}

func createUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Email: "user@example.com", Role: models.RoleOwner}
	if err := user.SetPassword("secret-password"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// createEntryPoint 与创建接口一致：节点行加十个待执行安装事件
func createEntryPoint(t *testing.T, db *gorm.DB, userID uint) *models.EntryPoint {
	t.Helper()
	entryPoint := &models.EntryPoint{
		UserID:   userID,
		Name:     "fra-1",
		IP:       "203.0.113.5",
		SSHPort:  22,
		Location: "Frankfurt",
		Status:   models.EntryPointProvisioning,
	}
	if err := db.Create(entryPoint).Error; err != nil {
		t.Fatalf("create entry point: %v", err)
	}
	for _, stage := range models.InstallStages {
		event := models.InstallEvent{
			EntryPointID: entryPoint.ID,
			Stage:        stage,
			Status:       models.InstallPending,
		}
		if err := db.Create(&event).Error; err != nil {
			t.Fatalf("create install event: %v", err)
		}
	}
	return entryPoint
}

func setLastSeen(t *testing.T, db *gorm.DB, entryPointID uint, seen time.Time) {
	t.Helper()
	if err := db.Model(&models.EntryPoint{}).Where("id = ?", entryPointID).
		Update("last_seen", seen).Error; err != nil {
		t.Fatalf("set last_seen: %v", err)
	}
}

func setStatus(t *testing.T, db *gorm.DB, entryPointID uint, status string) {
	t.Helper()
	if err := db.Model(&models.EntryPoint{}).Where("id = ?", entryPointID).
		Update("status", status).Error; err != nil {
		t.Fatalf("set status: %v", err)
	}
}

func countAlerts(t *testing.T, db *gorm.DB, alertType string) int64 {
	t.Helper()
	var count int64
	db.Model(&models.Alert{}).Where("type = ?", alertType).Count(&count)
	return count
}
