package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"anycastweb/models"

	"github.com/gin-gonic/gin"
)

func TestUpdatePasswordRequiresCurrent(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "user@example.com")

	w := env.request(t, http.MethodPut, "/api/settings/password", token, gin.H{
		"current_password": "wrong-password",
		"new_password":     "brand-new-password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong current password, got %d", w.Code)
	}

	w = env.request(t, http.MethodPut, "/api/settings/password", token, gin.H{
		"current_password": "secret-password",
		"new_password":     "brand-new-password",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = env.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "user@example.com",
		"password": "brand-new-password",
	})
	if w.Code != http.StatusOK {
		t.Errorf("login with new password: expected 200, got %d", w.Code)
	}
}

func TestGenerateAPIKeyReplacesOld(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "user@example.com")

	w := env.request(t, http.MethodPost, "/api/settings/api-keys/generate", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var user models.User
	env.db.Where("email = ?", "user@example.com").First(&user)
	if user.APIKey == nil || !strings.HasPrefix(*user.APIKey, "anycast_") {
		t.Fatalf("expected persisted api key with prefix, got %v", user.APIKey)
	}
	first := *user.APIKey

	env.request(t, http.MethodPost, "/api/settings/api-keys/generate", token, nil)
	env.db.Where("email = ?", "user@example.com").First(&user)
	if *user.APIKey == first {
		t.Error("expected new key to replace old one")
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "user@example.com")

	w := env.request(t, http.MethodPut, "/api/settings/profile", token, gin.H{
		"timezone": "Asia/Shanghai",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var user models.User
	env.db.Where("email = ?", "user@example.com").First(&user)
	if user.Timezone != "Asia/Shanghai" {
		t.Errorf("expected timezone updated, got %s", user.Timezone)
	}
}

func TestAlertsScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com")
	other := env.register(t, "other@example.com")

	var user models.User
	env.db.Where("email = ?", "owner@example.com").First(&user)
	alert := models.Alert{
		UserID:    user.ID,
		Type:      models.AlertWarning,
		Message:   "入口节点 fra-1 CPU使用率过高",
		Timestamp: time.Now(),
	}
	env.db.Create(&alert)

	w := env.request(t, http.MethodGet, "/api/alerts", owner, nil)
	envelope := decodeEnvelope(t, w)
	if items, ok := envelope["data"].([]any); !ok || len(items) != 1 {
		t.Errorf("owner should see 1 alert, got %v", envelope["data"])
	}
	w = env.request(t, http.MethodGet, "/api/alerts", other, nil)
	envelope = decodeEnvelope(t, w)
	if items, ok := envelope["data"].([]any); !ok || len(items) != 0 {
		t.Errorf("other user should see no alerts, got %v", envelope["data"])
	}

	// 他人标记已读不生效
	env.request(t, http.MethodPost, fmt.Sprintf("/api/alerts/%d/read", alert.ID), other, nil)
	var reloaded models.Alert
	env.db.First(&reloaded, alert.ID)
	if reloaded.Read {
		t.Error("foreign user must not mark alert read")
	}
	env.request(t, http.MethodPost, fmt.Sprintf("/api/alerts/%d/read", alert.ID), owner, nil)
	env.db.First(&reloaded, alert.ID)
	if !reloaded.Read {
		t.Error("owner mark read did not apply")
	}
}

func TestStatsOverviewAggregates(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "user@example.com")
	entryPoints := env.createEntryPoints(t, "user@example.com", 2)

	now := time.Now()
	env.db.Create(&models.Stat{
		EntryPointID: entryPoints[0].ID,
		TrafficIn:    500_000_000,
		TrafficOut:   500_000_000,
		Connections:  100,
		Timestamp:    now,
	})
	env.db.Create(&models.Stat{
		EntryPointID: entryPoints[1].ID,
		TrafficIn:    1_000_000_000,
		Connections:  50,
		Timestamp:    now,
	})
	// 超过一小时的样本不计入
	env.db.Create(&models.Stat{
		EntryPointID: entryPoints[0].ID,
		TrafficIn:    9_000_000_000,
		Timestamp:    now.Add(-2 * time.Hour),
	})

	w := env.request(t, http.MethodGet, "/api/stats/overview", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	envelope := decodeEnvelope(t, w)
	data := envelope["data"].(map[string]any)
	if gbps, _ := data["traffic_gbps"].(float64); gbps != 2.0 {
		t.Errorf("expected 2.0 gbps, got %v", data["traffic_gbps"])
	}
	if conns, _ := data["connections"].(float64); conns != 150 {
		t.Errorf("expected 150 connections, got %v", data["connections"])
	}
	nodes := data["entry_points"].(map[string]any)
	if total, _ := nodes["total"].(float64); total != 2 {
		t.Errorf("expected 2 total nodes, got %v", nodes["total"])
	}
}

func TestStatsGeoGroupsByCountry(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "user@example.com")
	env.createEntryPoints(t, "user@example.com", 2)

	w := env.request(t, http.MethodGet, "/api/stats/geo", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	envelope := decodeEnvelope(t, w)
	data := envelope["data"].(map[string]any)
	countries := data["countries"].([]any)
	if len(countries) != 1 {
		t.Fatalf("expected 1 country bucket, got %d", len(countries))
	}
	entry := countries[0].(map[string]any)
	if entry["country"] != "DE" || entry["code"] != "DE" {
		t.Errorf("expected DE bucket, got %v", entry)
	}
	if count, _ := entry["traffic"].(float64); count != 2 {
		t.Errorf("expected 2 nodes in bucket, got %v", entry["traffic"])
	}
}

func TestAdminMaintenanceModeVisibleOnHealthz(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "user@example.com")

	w := env.request(t, http.MethodPost, "/api/admin/maintenance-mode", token, gin.H{
		"enabled": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.request(t, http.MethodGet, "/healthz", "", nil)
	envelope := decodeEnvelope(t, w)
	data := envelope["data"].(map[string]any)
	if enabled, _ := data["maintenance"].(bool); !enabled {
		t.Error("expected maintenance flag exposed on healthz")
	}
}

func TestAdminRouteRejectsNonPrivilegedRole(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "user@example.com")

	// 改为无特权角色后再访问管理接口
	env.db.Model(&models.User{}).Where("email = ?", "user@example.com").
		Update("role", "viewer")

	w := env.request(t, http.MethodGet, "/api/admin/users", token, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for viewer role, got %d", w.Code)
	}
}

func TestGetSubscriptionFallsBackToFree(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "user@example.com")

	// 删掉订阅行，读取时应回退到免费套餐
	env.db.Where("1 = 1").Delete(&models.Subscription{})

	w := env.request(t, http.MethodGet, "/api/settings/subscription", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	envelope := decodeEnvelope(t, w)
	data := envelope["data"].(map[string]any)
	if data["plan"] != "free" {
		t.Errorf("expected free fallback, got %v", data["plan"])
	}
}
