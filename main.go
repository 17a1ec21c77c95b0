package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"anycastweb/config"
	"anycastweb/database"
	"anycastweb/handlers"
	"anycastweb/middleware"
	"anycastweb/models"
	"anycastweb/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/term"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "admin" {
		handleAdminCommand()
		return
	}
	startWebServer()
}

func startWebServer() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("❌ 配置加载失败: %v", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("[DB] 数据库初始化完成")
	checkAdminExists(db)

	runner := services.NewRunner(db, cfg)
	queue := services.NewQueue(runner, cfg.Sweep.Workers, cfg.Sweep.QueueSize)
	queue.Start()
	runner.StartHealthService()
	runner.StartStatsService()
	runner.StartRetentionService()

	h := handlers.New(db, cfg, queue, runner)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
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
		auth.GET("/routes/:id/check-dns", h.CheckRouteDNS)

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
			admin.POST("/sweep/health", h.AdminTriggerHealthSweep)
			admin.POST("/sweep/stats", h.AdminTriggerStatsSweep)
			admin.POST("/sweep/retention", h.AdminTriggerRetentionSweep)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code": 404,
			"msg":  "接口不存在",
		})
	})

	if err := r.Run(cfg.Server.Address); err != nil {
		log.Fatalf("❌ 服务器启动失败: %v", err)
	}
}

func checkAdminExists(db *gorm.DB) {
	var count int64
	db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count == 0 {
		log.Printf("")
		log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Printf("[WARN] 未检测到管理员账号")
		log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Printf("")
		log.Printf("请使用以下命令创建管理员账号:")
		log.Printf("  anycastweb admin create")
		log.Printf("")
	}
}

func handleAdminCommand() {
	if len(os.Args) < 3 {
		printAdminUsage()
		os.Exit(1)
	}
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	command := os.Args[2]
	switch command {
	case "create":
		createAdmin(db)
	case "password":
		changePassword(db)
	case "list":
		listAdmins(db)
	case "delete":
		deleteAdmin(db)
	default:
		printAdminUsage()
		os.Exit(1)
	}
}

func printAdminUsage() {
	fmt.Println("Anycast控制面板 管理员账号管理")
	fmt.Println("")
	fmt.Println("用法:")
	fmt.Println("  ./anycastweb admin create          创建新管理员")
	fmt.Println("  ./anycastweb admin password        修改用户密码")
	fmt.Println("  ./anycastweb admin list            列出所有管理员")
	fmt.Println("  ./anycastweb admin delete          删除用户")
	fmt.Println("")
	fmt.Println("示例:")
	fmt.Println("  ./anycastweb admin create")
	fmt.Println("  ./anycastweb admin password")
}

func readPasswordTwice() string {
	fmt.Print("输入密码: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatal("读取密码失败:", err)
	}
	fmt.Println()
	fmt.Print("确认密码: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatal("读取密码失败:", err)
	}
	fmt.Println()
	password := string(passwordBytes)
	confirm := string(confirmBytes)
	if password == "" {
		log.Fatal("密码不能为空")
	}
	if len(password) < 8 {
		log.Fatal("密码长度不能少于8位")
	}
	if password != confirm {
		log.Fatal("两次输入的密码不一致")
	}
	return password
}

func createAdmin(db *gorm.DB) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("输入邮箱: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		log.Fatal("邮箱不能为空")
	}
	var count int64
	db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		log.Fatal("邮箱已存在")
	}
	fmt.Print("输入显示名称 (可选): ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	password := readPasswordTwice()
	user := models.User{
		Email: email,
		Name:  name,
		Role:  models.RoleAdmin,
	}
	if err := user.SetPassword(password); err != nil {
		log.Fatal("密码加密失败:", err)
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatal("创建管理员失败:", err)
	}
	fmt.Printf("\n✓ 管理员 '%s' 创建成功\n", email)
}

func changePassword(db *gorm.DB) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("输入邮箱: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		log.Fatal("邮箱不能为空")
	}
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		log.Fatal("用户不存在")
	}
	password := readPasswordTwice()
	if err := user.SetPassword(password); err != nil {
		log.Fatal("密码加密失败:", err)
	}
	if err := db.Save(&user).Error; err != nil {
		log.Fatal("修改密码失败:", err)
	}
	fmt.Printf("\n✓ 用户 '%s' 密码修改成功\n", email)
}

func listAdmins(db *gorm.DB) {
	var users []models.User
	if err := db.Where("role = ?", models.RoleAdmin).Find(&users).Error; err != nil {
		log.Fatal("查询失败:", err)
	}
	if len(users) == 0 {
		fmt.Println("暂无管理员账号")
		return
	}
	fmt.Println("\n管理员列表:")
	fmt.Println("────────────────────────────────────────")
	fmt.Printf("%-5s %-30s %-20s\n", "ID", "邮箱", "名称")
	fmt.Println("────────────────────────────────────────")
	for _, user := range users {
		fmt.Printf("%-5d %-30s %-20s\n", user.ID, user.Email, user.Name)
	}
	fmt.Println("────────────────────────────────────────")
	fmt.Printf("共 %d 个管理员\n\n", len(users))
}

func deleteAdmin(db *gorm.DB) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("输入要删除的邮箱: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		log.Fatal("邮箱不能为空")
	}
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		log.Fatal("用户不存在")
	}
	fmt.Printf("确定要删除用户 '%s' 吗？(yes/no): ", email)
	confirm, _ := reader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))
	if confirm != "yes" && confirm != "y" {
		fmt.Println("已取消")
		return
	}
	if err := db.Delete(&user).Error; err != nil {
		log.Fatal("删除失败:", err)
	}
	fmt.Printf("\n✓ 用户 '%s' 已删除\n", email)
}
