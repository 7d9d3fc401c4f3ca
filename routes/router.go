package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/frcomments/config"
	"github.com/cppla/frcomments/controllers"
	"github.com/cppla/frcomments/middleware"
	"github.com/cppla/frcomments/services"
	"github.com/cppla/frcomments/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(svc *services.CommentService) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	commentController := controllers.NewCommentController(svc, cfg.CommentClaimBatch, utils.Logger)
	statsController := controllers.NewStatsController(svc, utils.Logger)
	maintenanceController := controllers.NewMaintenanceController(svc, utils.Logger)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	api.POST("/comments", commentController.CreateComment)
	api.GET("/comments/:id", commentController.GetComment)
	api.PATCH("/comments/:id", commentController.UpdateComment)
	api.DELETE("/comments/:id", commentController.DeleteComment)
	api.GET("/responses/:responseId/comments", commentController.ListResponseComments)
	api.GET("/questions/:questionId/comments", commentController.ListQuestionComments)

	session := api.Group("/courses/:courseId/sessions/:sessionName/comments")
	session.GET("", commentController.ListSessionComments)
	session.GET("/stats", statsController.GetSessionStats)

	admin := api.Group("")
	admin.Use(middleware.AdminRequired())
	admin.POST("/courses/:courseId/sessions/:sessionName/comments/claim", commentController.ClaimPending)
	admin.POST("/comments/sent", commentController.MarkSent)
	admin.POST("/comments/release", commentController.ReleaseSending)
	admin.DELETE("/courses/:courseId/sessions/:sessionName/comments", maintenanceController.DeleteSessionComments)
	admin.DELETE("/courses/:courseId/comments", maintenanceController.DeleteCourseComments)
	admin.DELETE("/questions/:questionId/comments", maintenanceController.DeleteQuestionComments)
	admin.POST("/comments/delete-by-responses", maintenanceController.DeleteResponseComments)
	admin.POST("/responses/:responseId/comments/move", maintenanceController.MoveResponse)
	admin.POST("/courses/:courseId/comments/giver-email", maintenanceController.RenameGiver)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
