package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"anycastweb/config"
	"anycastweb/database"
	"anycastweb/middleware"
	"anycastweb/models"
	"anycastweb/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	queue  *services.Queue
}

// newTestEnv 搭建完整路由表和真实鉴权中间件；队列不启动，任务只入缓冲
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:         "test-secret-for-handler-tests",
			AccessMinutes:  60,
			RefreshMinutes: 120,
		},
		Sweep: config.SweepConfig{RetentionDays: 30},
		DNS:   config.DNSConfig{Resolver: "127.0.0.1:53"},
	}
	runner := services.NewRunner(db, cfg)
	runner.SetStageDelay(0)
	queue := services.NewQueue(runner, 1, 64)
	h := New(db, cfg, queue, runner)

	r := gin.New()
	r.GET("/healthz", h.Healthz)
	api := r.Group("/api")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.Refresh)
	api.POST("/auth/forgot-password", h.ForgotPassword)
	api.POST("/auth/reset-password", h.ResetPassword)

	auth := api.Group("/")
	auth.Use(middleware.AuthRequired(db, &cfg.JWT))
	{
		auth.POST("/auth/logout", h.Logout)

		auth.GET("/entry-points", h.ListEntryPoints)
		auth.POST("/entry-points", h.CreateEntryPoint)
		auth.GET("/entry-points/:id", h.GetEntryPoint)
		auth.PUT("/entry-points/:id", h.UpdateEntryPoint)
		auth.DELETE("/entry-points/:id", h.DeleteEntryPoint)
		auth.POST("/entry-points/:id/restart", h.RestartEntryPoint)
		auth.GET("/entry-points/:id/stats", h.EntryPointStats)
		auth.GET("/entry-points/:id/logs", h.EntryPointLogs)
		auth.GET("/entry-points/:id/install-events", h.EntryPointInstallEvents)

		auth.GET("/routes", h.ListRoutes)
		auth.POST("/routes", h.CreateRoute)
		auth.GET("/routes/:id", h.GetRoute)
		auth.PUT("/routes/:id", h.UpdateRoute)
		auth.DELETE("/routes/:id", h.DeleteRoute)
		auth.POST("/routes/:id/pause", h.PauseRoute)
		auth.POST("/routes/:id/resume", h.ResumeRoute)

		auth.GET("/stats/overview", h.StatsOverview)
		auth.GET("/stats/traffic", h.StatsTraffic)
		auth.GET("/stats/geo", h.StatsGeo)
		auth.GET("/stats/ddos", h.StatsDDoS)

		auth.GET("/alerts", h.ListAlerts)
		auth.POST("/alerts/:id/read", h.MarkAlertRead)
		auth.DELETE("/alerts/:id", h.DeleteAlert)

		auth.GET("/settings/profile", h.GetProfile)
		auth.PUT("/settings/profile", h.UpdateProfile)
		auth.PUT("/settings/password", h.UpdatePassword)
		auth.PUT("/settings/notifications", h.UpdateNotifications)
		auth.POST("/settings/api-keys/generate", h.GenerateAPIKey)
		auth.GET("/settings/audit-logs", h.ListAuditLogs)
		auth.GET("/settings/subscription", h.GetSubscription)

		admin := auth.Group("/admin")
		admin.Use(middleware.RequireRole(models.RoleOwner, models.RoleAdmin))
		{
			admin.GET("/users", h.AdminListUsers)
			admin.GET("/system-stats", h.AdminSystemStats)
			admin.POST("/maintenance-mode", h.AdminMaintenanceMode)
		}
	}

	return &testEnv{router: r, db: db, queue: queue}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// register 注册并登录，返回访问令牌
func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	w := e.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"password": "secret-password",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register %s: status %d, body %s", email, w.Code, w.Body.String())
	}
	w = e.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    email,
		"password": "secret-password",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", email, w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Data.AccessToken
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope
}

// createEntryPoints 直接落库若干在线节点，避开异步安装流程
func (e *testEnv) createEntryPoints(t *testing.T, email string, n int) []models.EntryPoint {
	t.Helper()
	var user models.User
	if err := e.db.Where("email = ?", email).First(&user).Error; err != nil {
		t.Fatalf("find user %s: %v", email, err)
	}
	entryPoints := make([]models.EntryPoint, 0, n)
	for i := 0; i < n; i++ {
		entryPoint := models.EntryPoint{
			UserID:   user.ID,
			Name:     "ep-" + string(rune('a'+i)),
			IP:       "203.0.113.5",
			SSHPort:  22,
			Location: "Frankfurt, DE",
			Status:   models.EntryPointOnline,
		}
		if err := e.db.Create(&entryPoint).Error; err != nil {
			t.Fatalf("create entry point: %v", err)
		}
		entryPoints = append(entryPoints, entryPoint)
	}
	return entryPoints
}
