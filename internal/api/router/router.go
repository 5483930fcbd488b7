package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendance-engine/backend/config"
	"attendance-engine/backend/internal/api/handler"
	"attendance-engine/backend/internal/api/middleware"
	"attendance-engine/backend/pkg/jwt"
	"attendance-engine/backend/pkg/redis"
)

// 身份服务签发的角色
const (
	roleAdmin = "hr_admin" // 策略配置、快照恢复 / 删除
	roleStaff = "hr_staff" // 生成汇总、审核考勤问题、登记使用记录
)

const importEventsPath = "/api/v1/attendance/access-events"

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时限流中间件降级放行
func Setup(cfg *config.Config, h *handler.Handler, verifier *jwt.Verifier, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes, map[string]int64{
		importEventsPath: cfg.Server.ImportMaxBodyBytes,
	}))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	heavy := middleware.RateLimit(rdb, cfg.Server.HeavyRequestsPerMinute, time.Minute)
	staff := middleware.RoleAuth(roleAdmin, roleStaff)
	admin := middleware.RoleAuth(roleAdmin)
	deptScope := middleware.DepartmentScope(roleAdmin)

	// ── API v1 ──
	att := r.Group("/api/v1/attendance")
	att.Use(middleware.JWTAuth(verifier))
	{
		// 每日汇总
		daily := att.Group("/daily")
		{
			daily.POST("/generate", staff, heavy, h.Summary.GenerateDaily)
			daily.GET("", h.Summary.ListDaily)
			daily.GET("/:id", h.Summary.GetDaily)
			daily.PUT("/:id", staff, h.Summary.UpdateDaily)
			daily.GET("/:id/histories", h.Summary.ListChangeHistory)
		}

		// 月度汇总
		monthly := att.Group("/monthly")
		{
			monthly.POST("/generate", staff, heavy, h.Summary.GenerateMonthly)
			monthly.GET("", deptScope, h.Summary.ListMonthly)
			monthly.GET("/:employee_id", h.Summary.GetMonthly)
		}

		// 整月重算
		att.POST("/jobs/run-month", staff, heavy, h.Summary.RunMonth)

		// 考勤问题
		issues := att.Group("/issues")
		{
			issues.GET("", h.Issue.ListIssues)
			issues.GET("/:id", h.Issue.GetIssue)
			issues.PUT("/:id/correction", staff, h.Issue.RecordCorrection)
			issues.POST("/:id/apply", staff, h.Issue.ApplyIssue)
			issues.POST("/:id/reject", staff, h.Issue.RejectIssue)
		}

		// 快照
		snapshots := att.Group("/snapshots")
		{
			snapshots.POST("", staff, heavy, h.Snapshot.SaveSnapshot)
			snapshots.POST("/departments", staff, heavy, h.Snapshot.SaveDepartmentSnapshots)
			snapshots.GET("", h.Snapshot.ListSnapshots)
			snapshots.GET("/:id", h.Snapshot.GetSnapshot)
			snapshots.POST("/:id/restore", admin, heavy, h.Snapshot.RestoreSnapshot)
			snapshots.DELETE("/:id", admin, h.Snapshot.DeleteSnapshot)
		}

		// 考勤类型使用记录
		usages := att.Group("/usages")
		{
			usages.POST("", staff, h.Usage.RecordUsage)
			usages.GET("", h.Usage.ListUsage)
			usages.DELETE("/:id", staff, h.Usage.DeleteUsage)
		}

		// 门禁事件
		att.POST("/access-events", staff, h.AccessEvent.ImportEvents)

		// 策略配置
		att.GET("/policy-config", h.PolicyConfig.GetConfig)
		att.PUT("/policy-config", admin, h.PolicyConfig.UpdateConfig)

		// 导出
		export := att.Group("/export")
		{
			export.GET("/monthly", staff, deptScope, h.Export.ExportMonthly)
			export.GET("/monthly/:employee_id/pdf", staff, h.Export.ExportEmployeePDF)
		}
	}

	return r
}
